package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/luma/rconctl/client"
	"github.com/luma/rconctl/protocol"
	"github.com/luma/rconctl/storage"
)

// Commander runs commands on an RCON server. *client.Session satisfies it.
type Commander interface {
	SendCommand(command string) (string, error)
	SendCommandSimple(command string) (string, error)
}

var _ Commander = (*client.Session)(nil)

type Options struct {
	Commander Commander
	Store     storage.Store

	// Debug puts gin in debug mode
	Debug bool

	Log *zap.Logger
}

// NewRouter returns the HTTP API in front of an RCON session:
//
//   GET  /ping        liveness
//   POST /exec        {"command": "list", "simple": false}
//   GET  /transcript  recorded exchanges, ?path= runs a gjson query
//   GET  /transcript/updates
//                     server-sent events, one "entry" event per exchange
func NewRouter(options Options) *gin.Engine {
	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	gin.DisableConsoleColor()
	if !options.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/ping"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	h := &handlers{
		commander: options.Commander,
		store:     options.Store,
		log:       log,
	}

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.POST("/exec", h.exec)
	r.GET("/transcript", h.transcript)
	r.GET("/transcript/updates", h.transcriptUpdates)

	return r
}

type handlers struct {
	commander Commander
	store     storage.Store
	log       *zap.Logger
}

func (h *handlers) exec(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}

	if !gjson.ValidBytes(body) {
		writeError(c, http.StatusBadRequest, errors.New("Request body is not JSON"))
		return
	}

	command := gjson.GetBytes(body, "command")
	if command.Type != gjson.String || command.String() == "" {
		writeError(c, http.StatusBadRequest, errors.New("Missing command"))
		return
	}

	kind := storage.KindCommand
	run := h.commander.SendCommand
	if gjson.GetBytes(body, "simple").Bool() {
		kind = storage.KindSimpleCommand
		run = h.commander.SendCommandSimple
	}

	output, err := run(command.String())

	entry := &storage.Entry{
		Kind:    kind,
		Command: command.String(),
		Output:  output,
		Time:    time.Now().UTC(),
	}
	if err != nil {
		entry.Error = err.Error()
	}

	if serr := h.record(c.Request.Context(), entry); serr != nil {
		h.log.Warn("Failed to record exchange", zap.Error(serr))
	}

	if err != nil {
		h.log.Warn("Command failed", zap.String("command", command.String()), zap.Error(err))
		writeError(c, statusFor(err), err)
		return
	}

	resp, err := sjson.SetBytes([]byte(`{}`), "command", command.String())
	if err == nil {
		resp, err = sjson.SetBytes(resp, "output", output)
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", resp)
}

func (h *handlers) transcript(c *gin.Context) {
	if h.store == nil {
		writeError(c, http.StatusNotFound, errors.New("No transcript is kept"))
		return
	}

	var (
		value []byte
		err   error
	)

	if path := c.Query("path"); path != "" {
		value, err = h.store.Get(c.Request.Context(), path)
		if err == nil && value == nil {
			value = []byte("null")
		}
	} else {
		value, err = h.store.Backup()
	}

	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", value)
}

func (h *handlers) transcriptUpdates(c *gin.Context) {
	if h.store == nil {
		writeError(c, http.StatusNotFound, errors.New("No transcript is kept"))
		return
	}

	ctx := c.Request.Context()
	updates := h.store.ListenToUpdates(ctx)

	// Send the headers now so the client knows it is subscribed
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		entry, ok := <-updates
		if !ok {
			return false
		}

		c.SSEvent("entry", entry)
		return true
	})
}

func (h *handlers) record(ctx context.Context, entry *storage.Entry) error {
	if h.store == nil {
		return nil
	}

	return h.store.Append(ctx, entry)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, protocol.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, protocol.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, client.ErrSessionClosed), errors.Is(err, ErrReconnectorClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func writeError(c *gin.Context, status int, err error) {
	body, serr := sjson.SetBytes([]byte(`{}`), "error", err.Error())
	if serr != nil {
		c.Status(status)
		return
	}

	c.Data(status, "application/json; charset=utf-8", body)
}
