package membership

//go:generate go run ../gen/spacebotgen events -id CustomerID -aggregateType membership

// CustomerCreated records a new customer profile seen in the commerce system.
type CustomerCreated struct {
	CustomerID string  `json:"customerID"`
	Profile    Profile `json:"profile"`
}

type CustomerUpdated struct {
	CustomerID string  `json:"customerID"`
	Profile    Profile `json:"profile"`
}

// CustomerImported records a profile loaded during a bulk import.
type CustomerImported struct {
	CustomerID string  `json:"customerID"`
	Profile    Profile `json:"profile"`
}

type CustomerDeleted struct {
	CustomerID string  `json:"customerID"`
	Profile    Profile `json:"profile"`
}

type SubscriptionCreated struct {
	CustomerID   string       `json:"customerID"`
	Subscription Subscription `json:"subscription"`
}

type SubscriptionUpdated struct {
	CustomerID   string       `json:"customerID"`
	Subscription Subscription `json:"subscription"`
}

// SubscriptionImported assumes the member was already provisioned elsewhere,
// so no MembershipActivated is raised for an active import.
type SubscriptionImported struct {
	CustomerID   string       `json:"customerID"`
	Subscription Subscription `json:"subscription"`
}

// CardStatusUpdated records a confirmation from the door access system.
type CardStatusUpdated struct {
	CustomerID  string `json:"customerID"`
	RequestType string `json:"requestType"`
	CardNumber  string `json:"cardNumber"`
	Outcome     string `json:"outcome"`
}

type CardAdded struct {
	CustomerID string `json:"customerID"`
	CardNumber string `json:"cardNumber"`
}

type CardRemoved struct {
	CustomerID string `json:"customerID"`
	CardNumber string `json:"cardNumber"`
}

type CardSentForActivation struct {
	CustomerID string `json:"customerID"`
	CardNumber string `json:"cardNumber"`
}

type CardSentForDeactivation struct {
	CustomerID string `json:"customerID"`
	CardNumber string `json:"cardNumber"`
}

type CardActivated struct {
	CustomerID string `json:"customerID"`
	CardNumber string `json:"cardNumber"`
}

type CardDeactivated struct {
	CustomerID string `json:"customerID"`
	CardNumber string `json:"cardNumber"`
}

type MembershipActivated struct {
	CustomerID string `json:"customerID"`
}

type MembershipDeactivated struct {
	CustomerID string `json:"customerID"`
}

// SubscriptionStatusChanged uses an empty OldStatus for a subscription seen for the first time.
type SubscriptionStatusChanged struct {
	CustomerID     string `json:"customerID"`
	SubscriptionID string `json:"subscriptionID"`
	OldStatus      string `json:"oldStatus"`
	NewStatus      string `json:"newStatus"`
}

type GithubUsernameUpdated struct {
	CustomerID  string `json:"customerID"`
	OldUsername string `json:"oldUsername"`
	NewUsername string `json:"newUsername"`
	IsMember    bool   `json:"isMember"`
}

// CustomerIsNoEventTestUser silences every later command for the customer.
type CustomerIsNoEventTestUser struct {
	CustomerID string `json:"customerID"`
}
