package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"studytec-client/internal/app"
	"studytec-client/internal/domain"
)

// ClientFactory builds a fresh client session for one connection.
type ClientFactory func() *app.Client

type WSHandler struct {
	newClient ClientFactory
	registry  app.SessionRegistry
	log       zerolog.Logger
	upgrader  websocket.Upgrader
}

func NewWSHandler(newClient ClientFactory, registry app.SessionRegistry, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		newClient: newClient,
		registry:  registry,
		log:       log.With().Str("component", "ws").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type sessionPayload struct {
	ID string `json:"id"`
}

type settingsPayload struct {
	BackendURL string `json:"backendUrl"`
	APIKey     string `json:"apiKey"`
}

type loginPayload struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

type generatePayload struct {
	Topic string `json:"topic"`
}

type joinPayload struct {
	Code string `json:"code"`
}

type identityPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type answerPayload struct {
	Label string `json:"label"`
}

type createClassPayload struct {
	Name  string `json:"name"`
	Theme string `json:"theme"`
}

type dismissPayload struct {
	ID int64 `json:"id"`
}

type navigatePayload struct {
	View domain.View `json:"view"`
}

// toucher is implemented by registries that track session liveness.
type toucher interface {
	Touch(id string)
}

var errUnsupported = errors.New("unsupported message type")

// ServeWS upgrades HTTP requests to websockets and binds each connection to
// its own client session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	client := h.newClient()
	h.registry.Add(id, client)
	log := h.log.With().Str("session", id).Logger()
	log.Info().Msg("session opened")
	defer func() {
		if c, ok := h.registry.Remove(id); ok {
			c.Close()
		}
		log.Info().Msg("session closed")
	}()

	notifications, cancel := client.Notifications().Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	// push drops msg once the writer has stopped.
	push := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		}
	}

	go func() {
		defer close(updatesDone)
		for {
			var msg outboundMessage[any]
			select {
			case <-client.Changes():
				msg = stateMessage(client)
			case active, ok := <-notifications:
				if !ok {
					return
				}
				msg = outboundMessage[any]{Type: "notifications", Payload: active}
			case <-closeSignals:
				return
			}
			select {
			case send <- msg:
			case <-writerDone:
				return
			case <-closeSignals:
				return
			}
		}
	}()

	push(outboundMessage[any]{Type: "session", Payload: sessionPayload{ID: id}})
	push(stateMessage(client))

	// Collaborator calls run off the read loop so the session keeps
	// answering while they are outstanding.
	ctx, stop := context.WithCancel(r.Context())
	var inflight sync.WaitGroup
	handle := func(inbound inboundMessage) {
		if err := dispatch(ctx, client, inbound); err != nil {
			push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		}
		push(stateMessage(client))
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if t, ok := h.registry.(toucher); ok {
			t.Touch(id)
		}
		if !remote(inbound.Type) {
			handle(inbound)
			continue
		}
		inflight.Add(1)
		go func(inbound inboundMessage) {
			defer inflight.Done()
			handle(inbound)
		}(inbound)
	}

	stop()
	inflight.Wait()
	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// remote reports whether a command waits on a collaborator.
func remote(typ string) bool {
	switch typ {
	case "login", "generate", "join", "identity", "createClass", "refresh":
		return true
	}
	return false
}

func dispatch(ctx context.Context, client *app.Client, inbound inboundMessage) error {
	switch inbound.Type {
	case "settings":
		var p settingsPayload
		if err := decode(inbound, &p); err != nil {
			return err
		}
		client.Configure(app.Settings{BackendURL: p.BackendURL, APIKey: p.APIKey})
	case "login":
		var p loginPayload
		if err := decode(inbound, &p); err != nil {
			return err
		}
		_, err := client.Login(ctx, domain.Credentials{User: p.User, Pass: p.Pass})
		return err
	case "logout":
		client.Logout()
	case "generate":
		var p generatePayload
		if err := decode(inbound, &p); err != nil {
			return err
		}
		_, err := client.Generate(ctx, p.Topic)
		return err
	case "reset":
		client.ResetContent()
	case "join":
		var p joinPayload
		if err := decode(inbound, &p); err != nil {
			return err
		}
		_, err := client.JoinClass(ctx, p.Code)
		return err
	case "startQuiz":
		_, err := client.StartQuiz()
		return err
	case "identity":
		var p identityPayload
		if err := decode(inbound, &p); err != nil {
			return err
		}
		_, err := client.RegisterForQuiz(ctx, p.Name, p.Email)
		return err
	case "cancelIdentity":
		client.CancelIdentity()
	case "answer":
		var p answerPayload
		if err := decode(inbound, &p); err != nil {
			return err
		}
		_, err := client.SubmitAnswer(p.Label)
		return err
	case "exitQuiz":
		client.ExitQuiz()
	case "createClass":
		var p createClassPayload
		if err := decode(inbound, &p); err != nil {
			return err
		}
		_, err := client.CreateClass(ctx, p.Name, p.Theme)
		return err
	case "dismiss":
		var p dismissPayload
		if err := decode(inbound, &p); err != nil {
			return err
		}
		client.Dismiss(p.ID)
	case "navigate":
		var p navigatePayload
		if err := decode(inbound, &p); err != nil {
			return err
		}
		return client.Navigate(p.View)
	case "refresh":
		_, err := client.RefreshDashboard(ctx)
		return err
	default:
		return errUnsupported
	}
	return nil
}

func decode(inbound inboundMessage, dst any) error {
	if len(inbound.Payload) == 0 {
		return errors.New("missing " + inbound.Type + " payload")
	}
	if err := json.Unmarshal(inbound.Payload, dst); err != nil {
		return errors.New("invalid " + inbound.Type + " payload")
	}
	return nil
}

func stateMessage(client *app.Client) outboundMessage[any] {
	return outboundMessage[any]{Type: "state", Payload: publicSnapshot(client.Snapshot())}
}

// publicSnapshot hides the answers while a quiz over the artifact is open.
func publicSnapshot(s app.Snapshot) app.Snapshot {
	switch s.Quiz.Phase {
	case domain.QuizAwaitingIdentity, domain.QuizInProgress:
	default:
		return s
	}
	if s.Artifact != nil {
		artifact := *s.Artifact
		artifact.Questions = make([]domain.Question, len(s.Artifact.Questions))
		for i, q := range s.Artifact.Questions {
			q.Correct = ""
			artifact.Questions[i] = q
		}
		artifact.AnswerKey = nil
		s.Artifact = &artifact
	}
	if s.Question != nil {
		q := *s.Question
		q.Correct = ""
		s.Question = &q
	}
	return s
}
