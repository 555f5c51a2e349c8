package permissions

import usermodels "github.com/Haiikyu/reveelbox-sub002/internal/features/user/models"

// Capability names a privileged action a caller may attempt.
type Capability string

const (
	CapCreateGiveaway    Capability = "create_giveaway"
	CapJoinGiveaway      Capability = "join_giveaway"
	CapCompleteGiveaway  Capability = "complete_giveaway"
	CapCancelGiveaway    Capability = "cancel_giveaway"
	CapSendMessage       Capability = "send_message"
	CapSendSystemMessage Capability = "send_system_message"
	CapViewAudit         Capability = "view_audit"
	CapTriggerSweep      Capability = "trigger_sweep"
)

// MinJoinLevel is the minimum profile level required to enter a giveaway.
const MinJoinLevel = 5

// Can evaluates the capability matrix for the given profile. Capabilities
// absent from the matrix deny by default.
func Can(profile *usermodels.Profile, capability Capability) bool {
	if profile == nil {
		return false
	}

	switch capability {
	case CapCreateGiveaway, CapCompleteGiveaway, CapCancelGiveaway, CapSendSystemMessage, CapViewAudit, CapTriggerSweep:
		return profile.IsAdmin
	case CapJoinGiveaway:
		return profile.Level >= MinJoinLevel && !profile.IsBanned
	case CapSendMessage:
		return !profile.IsBanned
	default:
		return false
	}
}
