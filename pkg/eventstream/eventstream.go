package eventstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/denhac/spacebot"
	"github.com/denhac/spacebot/pkg/broadcast"
	"github.com/denhac/spacebot/pkg/recordsubscriber"
)

const (
	broadcastRecordBuffSize  = 100
	subscriberRecordBuffSize = 20
)

type websocketAPI struct {
	store       spacebot.Store
	handler     http.Handler
	upgrader    *websocket.Upgrader
	logger      *zap.Logger
	broadcaster broadcast.Broadcaster
}

// Option defines functional option parameters for websocketAPI.
type Option func(*websocketAPI)

// WithLogger is a functional option to inject a zap Logger.
func WithLogger(logger *zap.Logger) Option {
	return func(api *websocketAPI) {
		api.logger = logger
	}
}

// New constructs a websocketAPI that streams saved records to downstream reactors.
func New(store spacebot.Store, options ...Option) (*websocketAPI, error) {
	api := &websocketAPI{
		store: store,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: zap.NewNop(),
	}

	for _, option := range options {
		option(api)
	}

	api.broadcaster = broadcast.New(broadcastRecordBuffSize, broadcast.WithLogger(api.logger))

	api.initRoutes()
	err := api.store.Subscribe(context.Background(),
		spacebot.RecordSubscriberFunc(api.broadcaster.Accept),
	)
	if err != nil {
		api.broadcaster.Close()
		return nil, err
	}

	return api, nil
}

func (a *websocketAPI) initRoutes() {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/events", a.streamAllEvents)
	router.HandleFunc("/events/{aggregateType:[a-zA-Z-,]+}", a.streamEventsByAggregateTypes)
	a.handler = router
}

// Stop disconnects every client.
func (a *websocketAPI) Stop() {
	a.broadcaster.Close()
}

func (a *websocketAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *websocketAPI) streamAllEvents(w http.ResponseWriter, r *http.Request) {
	a.stream(w, r, nil)
}

func (a *websocketAPI) streamEventsByAggregateTypes(w http.ResponseWriter, r *http.Request) {
	aggregateTypes := strings.Split(mux.Vars(r)["aggregateType"], ",")
	a.stream(w, r, aggregateTypes)
}

func (a *websocketAPI) stream(w http.ResponseWriter, r *http.Request, aggregateTypes []string) {
	globalSequenceNumber, err := globalSequenceNumberFromRequest(r)
	if err != nil {
		http.Error(w, "invalid global-sequence-number", http.StatusBadRequest)
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Debug("unable to upgrade websocket connection", zap.Error(err))
		return
	}
	defer ignoreClose(conn)

	ctx, done := context.WithCancel(r.Context())
	defer done()

	config := recordsubscriber.AggregateTypesConfig(ctx,
		a.store,
		a.broadcaster,
		subscriberRecordBuffSize,
		aggregateTypes,
		func(record *spacebot.Record) error {
			return a.sendRecord(conn, record)
		},
	)
	subscriber := recordsubscriber.New(config)
	err = subscriber.StartFrom(globalSequenceNumber)
	if err != nil {
		return
	}

	// Clients only read; a returned read means the peer went away.
	go func() {
		_, _, _ = conn.ReadMessage()
		done()
	}()

	<-subscriber.Done()
}

func globalSequenceNumberFromRequest(r *http.Request) (uint64, error) {
	globalSequenceNumberInput := r.URL.Query().Get("global-sequence-number")
	if globalSequenceNumberInput == "" {
		return 0, nil
	}

	return strconv.ParseUint(globalSequenceNumberInput, 10, 64)
}

// MessageWriter is the interface for writing a message to a connection
type MessageWriter interface {
	WriteMessage(messageType int, data []byte) error
}

func (a *websocketAPI) sendRecord(conn MessageWriter, record *spacebot.Record) error {
	jsonRecord, err := json.Marshal(record)
	if err != nil {
		err = fmt.Errorf("unable to marshal record: %v", err)
		a.logger.Error("unable to stream record",
			zap.Uint64("globalSequenceNumber", record.GlobalSequenceNumber),
			zap.Error(err),
		)
		return err
	}

	err = conn.WriteMessage(websocket.TextMessage, jsonRecord)
	if err != nil {
		a.logger.Debug("unable to send record to websocket client",
			zap.Uint64("globalSequenceNumber", record.GlobalSequenceNumber),
			zap.Error(err),
		)
		return fmt.Errorf("unable to send record to websocket client: %v", err)
	}

	return nil
}

func ignoreClose(c io.Closer) {
	_ = c.Close()
}
