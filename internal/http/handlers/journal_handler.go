// Journal HTTP handlers.
//
//   - POST /journal/entries                              (create an entry)
//   - GET  /journal/entries                              (list, newest first)
//   - GET  /journal/today                                (today's session entry)
//   - POST /journal/today/messages                       (talk in today's session)
//   - POST /journal/entries/{entryId}/messages           (talk in a given entry)
//   - GET  /journal/entries/{entryId}/messages           (conversation, ETag aware)
//   - POST /journal/entries/{entryId}/messages/retry     (answer the last unanswered prompt)
//
// Posting a message returns the assistant reply. When the model refuses a
// prompt on content-safety grounds the reply is a fixed supportive text and
// the status is still 201.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-wellness-backend/internal/domain"
	"github.com/tbourn/go-wellness-backend/internal/http/middleware"
	"github.com/tbourn/go-wellness-backend/internal/services"
	"github.com/tbourn/go-wellness-backend/internal/utils"
)

// HeaderIdempotencyReplayed is set on responses served from a stored reply.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// CreateEntryRequest is the JSON payload for creating a journal entry.
type CreateEntryRequest struct {
	UserID  string `json:"userId" example:"user123"`
	Title   string `json:"title" example:"Evening thoughts"`
	Content string `json:"content" example:"Long day, but the walk helped."`
}

// PostMessageRequest is the JSON payload for sending a journal message.
// Sender is optional; when present it must be "user".
type PostMessageRequest struct {
	UserID  string `json:"userId" example:"user123"`
	Sender  string `json:"sender" example:"user"`
	Content string `json:"content" example:"I couldn't sleep well last night."`
}

// RetryRequest is the optional JSON payload of the retry endpoint.
type RetryRequest struct {
	UserID string `json:"userId" example:"user123"`
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes line endings and blank-line runs and trims
// surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// bindOptionalJSON binds the body when there is one.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(dst)
}

// CreateEntry godoc
// @ID          createEntry
// @Summary     Create a journal entry
// @Tags        Journal
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.CreateEntryRequest  true  "Entry"
// @Success     201   {object}  domain.JournalEntry
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     500   {object}  handlers.ErrorResponse
// @Router      /journal/entries [post]
func (h *Handlers) CreateEntry(c *gin.Context) {
	var req CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	uc, okUser := h.userContext(c, req.UserID)
	if !okUser {
		return
	}
	e, err := h.journal.CreateEntry(c.Request.Context(), uc, req.Title, sanitizeContent(req.Content))
	if err != nil {
		failFrom(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, e)
}

// ListEntries godoc
// @ID          listEntries
// @Summary     List journal entries, newest first
// @Tags        Journal
// @Produce     json
// @Param       userId  query     string  true   "User ID"
// @Param       limit   query     int     false  "Max items"  minimum(1) maximum(200) default(50)
// @Success     200     {array}   domain.JournalEntry
// @Failure     400     {object}  handlers.ErrorResponse
// @Failure     500     {object}  handlers.ErrorResponse
// @Router      /journal/entries [get]
func (h *Handlers) ListEntries(c *gin.Context) {
	uc, okUser := h.userContext(c, "")
	if !okUser {
		return
	}
	items, err := h.journal.ListEntries(c.Request.Context(), uc, utils.LimitParam(c.Query("limit"), 50, 200))
	if err != nil {
		failFrom(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, items)
}

// TodayEntry godoc
// @ID          todayEntry
// @Summary     Today's journal session entry
// @Description Returns the entry for the current day, creating it on first use.
// @Tags        Journal
// @Produce     json
// @Param       userId  query     string  true  "User ID"
// @Success     200     {object}  domain.JournalEntry
// @Failure     400     {object}  handlers.ErrorResponse
// @Failure     500     {object}  handlers.ErrorResponse
// @Router      /journal/today [get]
func (h *Handlers) TodayEntry(c *gin.Context) {
	uc, okUser := h.userContext(c, "")
	if !okUser {
		return
	}
	e, err := h.sessions.ResolveActiveEntry(c.Request.Context(), uc)
	if err != nil {
		failFrom(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, e)
}

// PostTodayMessage godoc
// @ID          postTodayMessage
// @Summary     Send a message in today's session
// @Tags        Journal
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.PostMessageRequest  true  "Message"
// @Success     201   {object}  domain.ChatMessage  "Assistant reply"
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     500   {object}  handlers.AIErrorResponse  "AI service error"
// @Router      /journal/today/messages [post]
func (h *Handlers) PostTodayMessage(c *gin.Context) {
	req, uc, okReq := h.bindMessage(c)
	if !okReq {
		return
	}
	reply, err := h.conversation.SendMessage(c.Request.Context(), uc, req.Content)
	if err != nil {
		failFrom(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusCreated, reply.Message)
}

// PostEntryMessage godoc
// @ID          postEntryMessage
// @Summary     Send a message in a journal entry
// @Description Stores the user's message, asks the model with the entry's history and returns the stored reply.
// @Description Supports Idempotency-Key: the same key returns the same reply with Idempotency-Replayed: true.
// @Tags        Journal
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"
// @Param       entryId          path    string  true   "Entry ID (UUID)"  format(uuid)
// @Param       body             body    handlers.PostMessageRequest  true  "Message"
// @Success     201  {object}  domain.ChatMessage      "Assistant reply"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Entry not found"
// @Failure     500  {object}  handlers.AIErrorResponse  "AI service error"
// @Router      /journal/entries/{entryId}/messages [post]
func (h *Handlers) PostEntryMessage(c *gin.Context) {
	req, uc, okReq := h.bindMessage(c)
	if !okReq {
		return
	}
	ctx := c.Request.Context()
	entryID := c.Param("entryId")
	key, hasKey := middleware.GetIdempotencyKey(c)
	hasKey = hasKey && h.idem != nil

	if hasKey {
		prev, err := h.idem.Lookup(ctx, uc.UserID, entryID, key)
		switch {
		case err == nil:
			c.Header(HeaderIdempotencyReplayed, "true")
			ok(c, http.StatusCreated, prev)
			return
		case !errors.Is(err, services.ErrMessageNotFound):
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
		}
	}

	reply, err := h.conversation.SendToEntry(ctx, uc, entryID, req.Content)
	if err != nil {
		failFrom(c, err, ErrCodeInternal)
		return
	}

	if hasKey {
		if err := h.idem.Remember(ctx, uc.UserID, entryID, key, reply.Message.ID, http.StatusCreated); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record failed")
		}
	}
	ok(c, http.StatusCreated, reply.Message)
}

// RetryEntryMessage godoc
// @ID          retryEntryMessage
// @Summary     Answer the last unanswered message of an entry
// @Description Re-asks the model for the trailing user message without storing it again.
// @Description Returns 200 with the existing reply when the entry is already answered.
// @Tags        Journal
// @Accept      json
// @Produce     json
// @Param       entryId  path    string  true   "Entry ID (UUID)"  format(uuid)
// @Param       body     body    handlers.RetryRequest  false  "Caller"
// @Success     200  {object}  domain.ChatMessage  "Already answered"
// @Success     201  {object}  domain.ChatMessage  "New reply"
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse  "Nothing to retry"
// @Failure     500  {object}  handlers.AIErrorResponse
// @Router      /journal/entries/{entryId}/messages/retry [post]
func (h *Handlers) RetryEntryMessage(c *gin.Context) {
	var req RetryRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	uc, okUser := h.userContext(c, req.UserID)
	if !okUser {
		return
	}
	reply, err := h.conversation.Retry(c.Request.Context(), uc, c.Param("entryId"))
	if err != nil {
		failFrom(c, err, ErrCodeInternal)
		return
	}
	status := http.StatusCreated
	if reply.Replayed {
		status = http.StatusOK
	}
	ok(c, status, reply.Message)
}

// ListEntryMessages godoc
// @ID          listEntryMessages
// @Summary     List the messages of an entry in conversation order
// @Description Sends a weak ETag; a matching If-None-Match yields 304.
// @Tags        Journal
// @Produce     json
// @Param       entryId  path    string  true  "Entry ID (UUID)"  format(uuid)
// @Param       userId   query   string  true  "User ID"
// @Success     200  {array}   domain.ChatMessage
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /journal/entries/{entryId}/messages [get]
func (h *Handlers) ListEntryMessages(c *gin.Context) {
	uc, okUser := h.userContext(c, "")
	if !okUser {
		return
	}
	ctx := c.Request.Context()
	entryID := c.Param("entryId")

	if _, err := h.journal.GetEntry(ctx, uc, entryID); err != nil {
		failFrom(c, err, ErrCodeListFailed)
		return
	}

	if count, maxSeq, err := h.journal.MessagesVersion(ctx, entryID); err == nil {
		etag := fmt.Sprintf(`W/"messages:%s:%d:%d"`, entryID, count, maxSeq)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.journal.ListMessages(ctx, uc, entryID)
	if err != nil {
		failFrom(c, err, ErrCodeListFailed)
		return
	}
	if items == nil {
		items = []domain.ChatMessage{}
	}
	ok(c, http.StatusOK, items)
}

// bindMessage decodes and validates a message payload and resolves the
// caller. It writes the error response itself.
func (h *Handlers) bindMessage(c *gin.Context) (PostMessageRequest, services.UserContext, bool) {
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return req, services.UserContext{}, false
	}
	if s := strings.TrimSpace(req.Sender); s != "" && s != domain.SenderUser {
		failFrom(c, services.ErrInvalidSender, ErrCodeBadRequest)
		return req, services.UserContext{}, false
	}
	req.Content = sanitizeContent(req.Content)
	if req.Content == "" {
		failFrom(c, services.ErrEmptyPrompt, ErrCodeBadRequest)
		return req, services.UserContext{}, false
	}
	uc, okUser := h.userContext(c, req.UserID)
	return req, uc, okUser
}
