package models

import "strings"

// EntityType tags what a report points at. Adding a value requires a case in
// every switch over EntityType in the services package.
type EntityType string

const (
	EntityUser        EntityType = "USER"
	EntityStartup     EntityType = "STARTUP"
	EntityChatMessage EntityType = "CHAT_MESSAGE"
)

var EntityTypes = []EntityType{EntityUser, EntityStartup, EntityChatMessage}

func ParseEntityType(raw string) (EntityType, bool) {
	t := EntityType(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range EntityTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

type ReportReason string

const (
	ReasonSpam                 ReportReason = "SPAM"
	ReasonHarassment           ReportReason = "HARASSMENT"
	ReasonInappropriateContent ReportReason = "INAPPROPRIATE_CONTENT"
	ReasonFraud                ReportReason = "FRAUD"
	ReasonDuplicate            ReportReason = "DUPLICATE"
	ReasonCopyright            ReportReason = "COPYRIGHT"
	ReasonImpersonation        ReportReason = "IMPERSONATION"
	ReasonAdultContent         ReportReason = "ADULT_CONTENT"
	ReasonViolence             ReportReason = "VIOLENCE"
	ReasonHateSpeech           ReportReason = "HATE_SPEECH"
	ReasonMisinformation       ReportReason = "MISINFORMATION"
	ReasonOther                ReportReason = "OTHER"
)

var ReportReasons = []ReportReason{
	ReasonSpam, ReasonHarassment, ReasonInappropriateContent, ReasonFraud,
	ReasonDuplicate, ReasonCopyright, ReasonImpersonation, ReasonAdultContent,
	ReasonViolence, ReasonHateSpeech, ReasonMisinformation, ReasonOther,
}

func ParseReportReason(raw string) (ReportReason, bool) {
	r := ReportReason(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range ReportReasons {
		if r == known {
			return r, true
		}
	}
	return "", false
}

type ReportStatus string

const (
	StatusPending     ReportStatus = "PENDING"
	StatusUnderReview ReportStatus = "UNDER_REVIEW"
	StatusResolved    ReportStatus = "RESOLVED"
	StatusRejected    ReportStatus = "REJECTED"
)

// OpenStatuses are the states a report can be resolved from.
var OpenStatuses = []ReportStatus{StatusPending, StatusUnderReview}

func (s ReportStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusRejected
}

func ParseReportStatus(raw string) (ReportStatus, bool) {
	switch s := ReportStatus(strings.ToUpper(strings.TrimSpace(raw))); s {
	case StatusPending, StatusUnderReview, StatusResolved, StatusRejected:
		return s, true
	default:
		return "", false
	}
}

// AdminAction is the closed catalog of resolution actions.
type AdminAction string

const (
	ActionNone             AdminAction = "NO_ACTION"
	ActionWarning          AdminAction = "WARNING"
	ActionContentRemoved   AdminAction = "CONTENT_REMOVED"
	ActionAccountSuspended AdminAction = "ACCOUNT_SUSPENDED"
	ActionAccountBanned    AdminAction = "ACCOUNT_BANNED"
)

// ActionEffect describes what an action does to the reported entity.
type ActionEffect struct {
	MutatesEntity bool
	// TargetStatus is the entity status the action drives to, empty when the
	// action does not change status.
	TargetStatus string
	Label        string
}

var actionEffects = map[AdminAction]ActionEffect{
	ActionNone:             {MutatesEntity: false, Label: "No action"},
	ActionWarning:          {MutatesEntity: true, Label: "Warning issued"},
	ActionContentRemoved:   {MutatesEntity: true, Label: "Content removed"},
	ActionAccountSuspended: {MutatesEntity: true, TargetStatus: EntityStatusSuspended, Label: "Account suspended"},
	ActionAccountBanned:    {MutatesEntity: true, TargetStatus: EntityStatusBanned, Label: "Account banned"},
}

func ParseAdminAction(raw string) (AdminAction, bool) {
	a := AdminAction(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := actionEffects[a]; !ok {
		return "", false
	}
	return a, true
}

func (a AdminAction) Effect() ActionEffect {
	return actionEffects[a]
}

func (a AdminAction) MutatesEntity() bool {
	return actionEffects[a].MutatesEntity
}

// Entity status values written through the platform mutation API.
const (
	EntityStatusSuspended     = "SUSPENDED"
	EntityStatusBanned        = "BANNED"
	EntityStatusProfileHidden = "PROFILE_HIDDEN"
)

// StatusCovers reports whether an entity in status current already carries
// the effect of target. A ban covers a suspension and is never lowered.
func StatusCovers(current, target string) bool {
	current = strings.ToUpper(strings.TrimSpace(current))
	target = strings.ToUpper(strings.TrimSpace(target))
	if current == "" || target == "" {
		return false
	}
	if current == target {
		return true
	}
	return current == EntityStatusBanned && target == EntityStatusSuspended
}

type Channel string

const (
	ChannelInApp Channel = "IN_APP"
	ChannelEmail Channel = "EMAIL"
)

var Channels = []Channel{ChannelInApp, ChannelEmail}

func ParseChannel(raw string) (Channel, bool) {
	switch c := Channel(strings.ToUpper(strings.TrimSpace(raw))); c {
	case ChannelInApp, ChannelEmail:
		return c, true
	default:
		return "", false
	}
}

// ChatReportStatus is the status vocabulary of the chat service's own
// message reports.
type ChatReportStatus string

const (
	ChatStatusPending     ChatReportStatus = "PENDING"
	ChatStatusInReview    ChatReportStatus = "IN_REVIEW"
	ChatStatusReviewed    ChatReportStatus = "REVIEWED"
	ChatStatusActionTaken ChatReportStatus = "ACTION_TAKEN"
	ChatStatusDismissed   ChatReportStatus = "DISMISSED"
)

var ChatReportStatuses = []ChatReportStatus{
	ChatStatusPending, ChatStatusInReview, ChatStatusReviewed, ChatStatusActionTaken, ChatStatusDismissed,
}

func ParseChatReportStatus(raw string) (ChatReportStatus, bool) {
	s := ChatReportStatus(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range ChatReportStatuses {
		if s == known {
			return s, true
		}
	}
	return "", false
}

// GenericStatus maps a chat report status onto the report lifecycle. The
// original value is kept on the report as SourceStatus, so DISMISSED stays
// distinguishable from a REJECTED report that never came from chat.
func (s ChatReportStatus) GenericStatus() ReportStatus {
	switch s {
	case ChatStatusInReview:
		return StatusUnderReview
	case ChatStatusReviewed, ChatStatusActionTaken:
		return StatusResolved
	case ChatStatusDismissed:
		return StatusRejected
	default:
		return StatusPending
	}
}
