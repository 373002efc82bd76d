package membership

//go:generate go run ../gen/spacebotgen commands -id CustomerID -aggregateType membership

type CreateCustomer struct {
	CustomerID string
	Profile    Profile
}

type UpdateCustomer struct {
	CustomerID string
	Profile    Profile
}

type ImportCustomer struct {
	CustomerID string
	Profile    Profile
}

type DeleteCustomer struct {
	CustomerID string
	Profile    Profile
}

type CreateSubscription struct {
	CustomerID   string
	Subscription Subscription
}

type UpdateSubscription struct {
	CustomerID   string
	Subscription Subscription
}

type ImportSubscription struct {
	CustomerID   string
	Subscription Subscription
}

// UpdateCardStatus reports the outcome of a card request sent to the door access system.
type UpdateCardStatus struct {
	CustomerID  string
	RequestType string
	CardNumber  string
	Outcome     string
}

type MarkNoEventTestUser struct {
	CustomerID string
}
