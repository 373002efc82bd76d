package membership

import (
	"github.com/denhac/spacebot"
)

// BindEvents binds every membership event for deserialization.
func BindEvents(binder spacebot.EventBinder) {
	binder.Bind(
		&CustomerCreated{},
		&CustomerUpdated{},
		&CustomerImported{},
		&CustomerDeleted{},
		&SubscriptionCreated{},
		&SubscriptionUpdated{},
		&SubscriptionImported{},
		&CardStatusUpdated{},
		&CardAdded{},
		&CardRemoved{},
		&CardSentForActivation{},
		&CardSentForDeactivation{},
		&CardActivated{},
		&CardDeactivated{},
		&MembershipActivated{},
		&MembershipDeactivated{},
		&SubscriptionStatusChanged{},
		&GithubUsernameUpdated{},
		&CustomerIsNoEventTestUser{},
	)
}
