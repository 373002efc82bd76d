package membershipapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/membership"
	"github.com/denhac/spacebot/pkg/cqrs"
	"github.com/denhac/spacebot/pkg/projection"
)

// MemberFinder reads the members read model.
type MemberFinder interface {
	Member(customerID string) (membership.Member, bool)
	ActiveMembers() []membership.Member
}

type api struct {
	dispatcher         cqrs.CommandDispatcher
	members            MemberFinder
	aggregateTypeStats *projection.AggregateTypeStats
	handler            http.Handler
	validate           *validator.Validate
	logger             *zap.Logger
}

// Option defines functional option parameters for api.
type Option func(*api)

// WithLogger is a functional option to inject a zap Logger.
func WithLogger(logger *zap.Logger) Option {
	return func(api *api) {
		api.logger = logger
	}
}

// WithAggregateTypeStats is a functional option to expose event counts per aggregate type.
func WithAggregateTypeStats(aggregateTypeStats *projection.AggregateTypeStats) Option {
	return func(api *api) {
		api.aggregateTypeStats = aggregateTypeStats
	}
}

// New constructs an api.
func New(dispatcher cqrs.CommandDispatcher, members MemberFinder, options ...Option) *api {
	api := &api{
		dispatcher:         dispatcher,
		members:            members,
		aggregateTypeStats: projection.NewAggregateTypeStats(),
		validate:           validator.New(),
		logger:             zap.NewNop(),
	}

	for _, option := range options {
		option(api)
	}

	api.initRoutes()

	return api
}

func (a *api) initRoutes() {
	const customer = "/customers/{customerID:[0-9A-Za-z_-]+}"
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/health-check", a.healthCheck).Methods(http.MethodGet)
	router.HandleFunc("/members", a.activeMembers).Methods(http.MethodGet)
	router.HandleFunc("/list-aggregate-types", a.listAggregateTypes).Methods(http.MethodGet)
	router.HandleFunc(customer, a.member).Methods(http.MethodGet)
	router.HandleFunc(customer+"/{action:create|update|import|delete}", a.customerChanged).Methods(http.MethodPost)
	router.HandleFunc(customer+"/no-event-test-user", a.markNoEventTestUser).Methods(http.MethodPost)
	router.HandleFunc(customer+"/subscriptions/{action:create|update|import}", a.subscriptionChanged).Methods(http.MethodPost)
	router.HandleFunc(customer+"/card-updates", a.cardUpdated).Methods(http.MethodPost)
	a.handler = handlers.CompressHandler(router)
}

func (a *api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *api) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set(`Content-Type`, `application/json`)
	_, _ = fmt.Fprintf(w, `{"status":"OK"}`)
}

type customerRequest struct {
	MetaData []membership.MetaData `json:"meta_data"`
}

func (a *api) customerChanged(w http.ResponseWriter, r *http.Request) {
	customerID := mux.Vars(r)["customerID"]

	var request customerRequest
	if err := decodeBody(r, &request); err != nil {
		writeBadRequest(w, "invalid json request body")
		return
	}

	profile := membership.Profile{MetaData: request.MetaData}

	var command cqrs.Command
	switch mux.Vars(r)["action"] {
	case "create":
		command = membership.CreateCustomer{CustomerID: customerID, Profile: profile}
	case "update":
		command = membership.UpdateCustomer{CustomerID: customerID, Profile: profile}
	case "import":
		command = membership.ImportCustomer{CustomerID: customerID, Profile: profile}
	case "delete":
		command = membership.DeleteCustomer{CustomerID: customerID, Profile: profile}
	}

	a.dispatch(w, r, command)
}

func (a *api) markNoEventTestUser(w http.ResponseWriter, r *http.Request) {
	a.dispatch(w, r, membership.MarkNoEventTestUser{
		CustomerID: mux.Vars(r)["customerID"],
	})
}

type subscriptionRequest struct {
	ID     json.RawMessage `json:"id"`
	Status string          `json:"status"`
}

type subscriptionPayload struct {
	ID     string `validate:"required"`
	Status string `validate:"required"`
}

func (a *api) subscriptionChanged(w http.ResponseWriter, r *http.Request) {
	customerID := mux.Vars(r)["customerID"]

	var request subscriptionRequest
	if err := decodeBody(r, &request); err != nil {
		writeBadRequest(w, "invalid json request body")
		return
	}

	payload := subscriptionPayload{ID: idString(request.ID), Status: request.Status}
	if err := a.validate.Struct(payload); err != nil {
		writeBadRequest(w, "subscription id and status are required")
		return
	}

	subscription := membership.Subscription{ID: payload.ID, Status: payload.Status}

	var command cqrs.Command
	switch mux.Vars(r)["action"] {
	case "create":
		command = membership.CreateSubscription{CustomerID: customerID, Subscription: subscription}
	case "update":
		command = membership.UpdateSubscription{CustomerID: customerID, Subscription: subscription}
	case "import":
		command = membership.ImportSubscription{CustomerID: customerID, Subscription: subscription}
	}

	a.dispatch(w, r, command)
}

type cardUpdateRequest struct {
	Type   string `json:"type"`
	Card   string `json:"card" validate:"required"`
	Status string `json:"status"`
}

func (a *api) cardUpdated(w http.ResponseWriter, r *http.Request) {
	var request cardUpdateRequest
	if err := decodeBody(r, &request); err != nil {
		writeBadRequest(w, "invalid json request body")
		return
	}

	if err := a.validate.Struct(request); err != nil {
		writeBadRequest(w, "card is required")
		return
	}

	a.dispatch(w, r, membership.UpdateCardStatus{
		CustomerID:  mux.Vars(r)["customerID"],
		RequestType: request.Type,
		CardNumber:  request.Card,
		Outcome:     request.Status,
	})
}

func (a *api) member(w http.ResponseWriter, r *http.Request) {
	member, ok := a.members.Member(mux.Vars(r)["customerID"])
	if !ok {
		writeJSON(w, http.StatusNotFound, failedResponse{Status: "Failed", Message: "customer not found"})
		return
	}

	writeJSON(w, http.StatusOK, member)
}

func (a *api) activeMembers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Data []membership.Member `json:"data"`
	}{
		Data: a.members.ActiveMembers(),
	})
}

func (a *api) listAggregateTypes(w http.ResponseWriter, _ *http.Request) {
	type aggregateType struct {
		Name        string `json:"name"`
		TotalEvents uint64 `json:"totalEvents"`
	}

	data := make([]aggregateType, 0)
	for _, name := range a.aggregateTypeStats.SortedAggregateTypes() {
		data = append(data, aggregateType{
			Name:        name,
			TotalEvents: a.aggregateTypeStats.TotalEventsByAggregateType(name),
		})
	}

	writeJSON(w, http.StatusOK, struct {
		Data        []aggregateType `json:"data"`
		TotalEvents uint64          `json:"totalEvents"`
	}{
		Data:        data,
		TotalEvents: a.aggregateTypeStats.TotalEvents(),
	})
}

type dispatchResponse struct {
	Status string   `json:"status"`
	Events []string `json:"events"`
}

type failedResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (a *api) dispatch(w http.ResponseWriter, r *http.Request, command cqrs.Command) {
	events, err := a.dispatcher.Dispatch(r.Context(), command)
	if err != nil {
		a.logger.Error("unable to dispatch command",
			zap.String("commandType", command.CommandType()),
			zap.String("customerID", command.AggregateID()),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, failedResponse{Status: "Failed", Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, dispatchResponse{
		Status: "OK",
		Events: eventTypes(events),
	})
}

func eventTypes(events []spacebot.Event) []string {
	types := make([]string, len(events))
	for i, event := range events {
		types[i] = event.EventType()
	}

	return types
}

// idString accepts commerce ids sent either as JSON numbers or strings.
func idString(raw json.RawMessage) string {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}

	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		return number.String()
	}

	return ""
}

func decodeBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()

	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid json request body: %w", err)
	}

	return nil
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, failedResponse{Status: "Failed", Message: message})
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set(`Content-Type`, `application/json`)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
