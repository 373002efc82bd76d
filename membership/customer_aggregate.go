package membership

//go:generate go run ../gen/spacebotgen aggregate -name customer -inFile customer_commands.go

import (
	"go.uber.org/zap"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/pkg/cqrs"
)

const (
	RequestTypeActivation   = "activation"
	RequestTypeDeactivation = "deactivation"

	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

const (
	StatusNeedIDCheck      = "need-id-check"
	StatusIDWasChecked     = "id-was-checked"
	StatusActive           = "active"
	StatusCancelled        = "cancelled"
	StatusSuspendedPayment = "suspended-payment"
	StatusSuspendedManual  = "suspended-manual"
)

type customer struct {
	logger        *zap.Logger
	state         customerState
	pendingEvents []spacebot.Event
}

type customerState struct {
	customerID               string
	respondToEvents          bool
	cardsOnAccount           *cardSet
	cardsNeedingActivation   *cardSet
	cardsSentForActivation   *cardSet
	cardsSentForDeactivation *cardSet
	subscriptionStatus       map[string]string
	currentlyAMember         bool
	githubUsername           string
}

// CustomerState is a read only copy of a folded customer.
type CustomerState struct {
	CustomerID               string
	RespondToEvents          bool
	CardsOnAccount           []string
	CardsNeedingActivation   []string
	CardsSentForActivation   []string
	CardsSentForDeactivation []string
	SubscriptionStatus       map[string]string
	CurrentlyAMember         bool
	GithubUsername           string
}

// NewCustomer constructs a new cqrs.Aggregate for one membership stream.
func NewCustomer(logger *zap.Logger) *customer {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &customer{
		logger: logger,
		state: customerState{
			respondToEvents:          true,
			cardsOnAccount:           newCardSet(),
			cardsNeedingActivation:   newCardSet(),
			cardsSentForActivation:   newCardSet(),
			cardsSentForDeactivation: newCardSet(),
			subscriptionStatus:       make(map[string]string),
		},
	}
}

// Apply folds one persisted event.
func (a *customer) Apply(event spacebot.Event) error {
	if !a.apply(event) {
		return &cqrs.UnhandledEventError{EventType: event.EventType()}
	}

	return nil
}

func (a *customer) apply(event spacebot.Event) bool {
	a.state.customerID = event.AggregateID()

	switch e := event.(type) {

	case *CustomerCreated, *CustomerUpdated, *CustomerImported, *CustomerDeleted, *CardStatusUpdated:

	case *SubscriptionCreated:
		a.sawSubscription(e.Subscription)

	case *SubscriptionUpdated:
		a.sawSubscription(e.Subscription)

	case *SubscriptionImported:
		a.sawSubscription(e.Subscription)

	case *CardAdded:
		a.state.cardsOnAccount.add(e.CardNumber)
		a.state.cardsNeedingActivation.add(e.CardNumber)

	case *CardRemoved:
		a.state.cardsOnAccount.remove(e.CardNumber)
		a.state.cardsNeedingActivation.remove(e.CardNumber)
		a.state.cardsSentForActivation.remove(e.CardNumber)

	case *CardSentForActivation:
		a.state.cardsNeedingActivation.remove(e.CardNumber)
		a.state.cardsSentForActivation.add(e.CardNumber)

	case *CardSentForDeactivation:
		a.state.cardsSentForDeactivation.add(e.CardNumber)

	case *CardActivated:
		a.state.cardsSentForActivation.remove(e.CardNumber)

	case *CardDeactivated:
		a.state.cardsSentForDeactivation.remove(e.CardNumber)

	case *MembershipActivated:
		a.state.currentlyAMember = true

	case *MembershipDeactivated:
		a.state.currentlyAMember = false

	case *SubscriptionStatusChanged:
		if e.NewStatus == StatusActive {
			a.state.currentlyAMember = true
		}
		a.state.subscriptionStatus[e.SubscriptionID] = e.NewStatus

	case *GithubUsernameUpdated:
		a.state.githubUsername = e.NewUsername

	case *CustomerIsNoEventTestUser:
		a.state.respondToEvents = false

	default:
		return false
	}

	return true
}

func (a *customer) sawSubscription(subscription Subscription) {
	if subscription.Status == StatusActive {
		a.state.currentlyAMember = true
	}
}

func (a *customer) createCustomer(c CreateCustomer) {
	if !a.state.respondToEvents {
		return
	}

	a.raise(&CustomerCreated{CustomerID: c.CustomerID, Profile: c.Profile})

	snapshot := c.Profile.snapshot()
	a.reconcileCards(c.CustomerID, snapshot)
	a.trackGithubUsername(c.CustomerID, snapshot)
}

func (a *customer) updateCustomer(c UpdateCustomer) {
	if !a.state.respondToEvents {
		return
	}

	a.raise(&CustomerUpdated{CustomerID: c.CustomerID, Profile: c.Profile})

	snapshot := c.Profile.snapshot()
	a.reconcileCards(c.CustomerID, snapshot)
	a.trackGithubUsername(c.CustomerID, snapshot)
}

func (a *customer) importCustomer(c ImportCustomer) {
	if !a.state.respondToEvents {
		return
	}

	a.raise(&CustomerImported{CustomerID: c.CustomerID, Profile: c.Profile})

	a.reconcileCards(c.CustomerID, c.Profile.snapshot())
}

func (a *customer) deleteCustomer(c DeleteCustomer) {
	if !a.state.respondToEvents {
		return
	}

	// Card and membership state stay as they are; follow up happens outside the aggregate.
	a.raise(&CustomerDeleted{CustomerID: c.CustomerID, Profile: c.Profile})
}

func (a *customer) createSubscription(c CreateSubscription) {
	if !a.state.respondToEvents {
		return
	}

	a.raise(&SubscriptionCreated{CustomerID: c.CustomerID, Subscription: c.Subscription})
	a.transitionSubscription(c.CustomerID, c.Subscription)
}

func (a *customer) updateSubscription(c UpdateSubscription) {
	if !a.state.respondToEvents {
		return
	}

	a.raise(&SubscriptionUpdated{CustomerID: c.CustomerID, Subscription: c.Subscription})
	a.transitionSubscription(c.CustomerID, c.Subscription)
}

func (a *customer) importSubscription(c ImportSubscription) {
	if !a.state.respondToEvents {
		return
	}

	a.raise(&SubscriptionImported{CustomerID: c.CustomerID, Subscription: c.Subscription})
	a.transitionSubscription(c.CustomerID, c.Subscription)
}

func (a *customer) updateCardStatus(c UpdateCardStatus) {
	if !a.state.respondToEvents {
		return
	}

	a.raise(&CardStatusUpdated{
		CustomerID:  c.CustomerID,
		RequestType: c.RequestType,
		CardNumber:  c.CardNumber,
		Outcome:     c.Outcome,
	})

	if c.Outcome != OutcomeSuccess {
		a.logger.Error("card update not successful",
			zap.String("customerID", c.CustomerID),
			zap.String("cardNumber", c.CardNumber),
			zap.String("requestType", c.RequestType),
			zap.String("outcome", c.Outcome),
		)
		return
	}

	switch c.RequestType {
	case RequestTypeActivation:
		a.raise(&CardActivated{CustomerID: c.CustomerID, CardNumber: c.CardNumber})

	case RequestTypeDeactivation:
		a.raise(&CardDeactivated{CustomerID: c.CustomerID, CardNumber: c.CardNumber})

	default:
		a.logger.Error("unexpected card update request type",
			zap.String("customerID", c.CustomerID),
			zap.String("cardNumber", c.CardNumber),
			zap.String("requestType", c.RequestType),
			zap.String("outcome", c.Outcome),
		)
	}
}

func (a *customer) markNoEventTestUser(c MarkNoEventTestUser) {
	a.raise(&CustomerIsNoEventTestUser{CustomerID: c.CustomerID})
}

func (a *customer) reconcileCards(customerID string, snapshot profileSnapshot) {
	incoming := parseCardNumbers(snapshot.cardNumbersRaw)
	if len(incoming) == 0 {
		return
	}

	for _, cardNumber := range incoming {
		if a.allCards().contains(cardNumber) {
			continue
		}

		a.raise(&CardAdded{CustomerID: customerID, CardNumber: cardNumber})

		if a.state.currentlyAMember {
			a.raise(&CardSentForActivation{CustomerID: customerID, CardNumber: cardNumber})
		}
	}

	incomingSet := newCardSet()
	for _, cardNumber := range incoming {
		incomingSet.add(cardNumber)
	}

	for _, cardNumber := range a.allCards().values() {
		if incomingSet.contains(cardNumber) {
			continue
		}

		a.raise(&CardRemoved{CustomerID: customerID, CardNumber: cardNumber})
		a.raise(&CardSentForDeactivation{CustomerID: customerID, CardNumber: cardNumber})
	}
}

func (a *customer) transitionSubscription(customerID string, subscription Subscription) {
	oldStatus := a.state.subscriptionStatus[subscription.ID]
	newStatus := subscription.Status

	if oldStatus == newStatus {
		return
	}

	if (oldStatus == StatusNeedIDCheck || oldStatus == StatusIDWasChecked) && newStatus == StatusActive {
		a.raise(&MembershipActivated{CustomerID: customerID})

		for _, cardNumber := range a.allCards().values() {
			a.raise(&CardSentForActivation{CustomerID: customerID, CardNumber: cardNumber})
		}
	}

	switch newStatus {
	case StatusCancelled, StatusSuspendedPayment, StatusSuspendedManual:
		a.raise(&MembershipDeactivated{CustomerID: customerID})

		for _, cardNumber := range a.allCards().values() {
			a.raise(&CardSentForDeactivation{CustomerID: customerID, CardNumber: cardNumber})
		}
	}

	a.raise(&SubscriptionStatusChanged{
		CustomerID:     customerID,
		SubscriptionID: subscription.ID,
		OldStatus:      oldStatus,
		NewStatus:      newStatus,
	})
}

func (a *customer) trackGithubUsername(customerID string, snapshot profileSnapshot) {
	if snapshot.githubUsername == a.state.githubUsername {
		return
	}

	a.raise(&GithubUsernameUpdated{
		CustomerID:  customerID,
		OldUsername: a.state.githubUsername,
		NewUsername: snapshot.githubUsername,
		IsMember:    a.state.currentlyAMember,
	})
}

func (a *customer) allCards() *cardSet {
	return unionCardSets(
		a.state.cardsNeedingActivation,
		a.state.cardsSentForActivation,
		a.state.cardsOnAccount,
	)
}

func (a *customer) raise(events ...spacebot.Event) {
	for _, event := range events {
		a.apply(event)
	}

	a.pendingEvents = append(a.pendingEvents, events...)
}

// State returns a copy of the folded state.
func (a *customer) State() CustomerState {
	subscriptionStatus := make(map[string]string, len(a.state.subscriptionStatus))
	for subscriptionID, status := range a.state.subscriptionStatus {
		subscriptionStatus[subscriptionID] = status
	}

	return CustomerState{
		CustomerID:               a.state.customerID,
		RespondToEvents:          a.state.respondToEvents,
		CardsOnAccount:           a.state.cardsOnAccount.values(),
		CardsNeedingActivation:   a.state.cardsNeedingActivation.values(),
		CardsSentForActivation:   a.state.cardsSentForActivation.values(),
		CardsSentForDeactivation: a.state.cardsSentForDeactivation.values(),
		SubscriptionStatus:       subscriptionStatus,
		CurrentlyAMember:         a.state.currentlyAMember,
		GithubUsername:           a.state.githubUsername,
	}
}
