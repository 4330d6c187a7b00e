package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"civicreport-be/models"
	"civicreport-be/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type issueService interface {
	ListAll(ctx context.Context) []models.Issue
	Create(ctx context.Context, in services.CreateIssueInput) (models.Issue, error)
	UpdateStatus(ctx context.Context, id string, status models.IssueStatus) (models.Issue, error)
	Assign(ctx context.Context, id string, in services.AssignInput) (models.Issue, error)
	Delete(ctx context.Context, id string) (models.ArchivedIssue, error)
}

type archiveService interface {
	ClearResolved(ctx context.Context) (services.ClearResult, error)
	List(ctx context.Context) []models.ArchivedIssue
}

// IssueController serves the issue and archive endpoints.
type IssueController struct {
	issues  issueService
	archive archiveService
	timeout time.Duration
	log     zerolog.Logger
}

// NewIssueController builds the controller. timeout bounds each request's
// store access.
func NewIssueController(issues issueService, archive archiveService, timeout time.Duration, log zerolog.Logger) *IssueController {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &IssueController{issues: issues, archive: archive, timeout: timeout, log: log}
}

// ListIssues returns every active issue.
func (ic *IssueController) ListIssues(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	c.JSON(http.StatusOK, ic.issues.ListAll(ctx))
}

// CreateIssue handles a citizen report. Missing fields are accepted, and
// coordinates, media and voiceNote are stored as sent.
func (ic *IssueController) CreateIssue(c *gin.Context) {
	var input map[string]json.RawMessage
	if !bindOptionalJSON(c, &input) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	issue, err := ic.issues.Create(ctx, services.CreateIssueInput{
		Type:          textField(input, "type"),
		Title:         textField(input, "title"),
		Description:   textField(input, "description"),
		Location:      textField(input, "location"),
		ManualAddress: textField(input, "manualAddress"),
		Coordinates:   opaqueField(input, "coordinates"),
		Priority:      models.IssuePriority(textField(input, "priority")),
		ReportedBy:    textField(input, "reportedBy"),
		Media:         mediaField(input, "media"),
		VoiceNote:     opaqueField(input, "voiceNote"),
	})
	if err != nil {
		ic.fail(c, err, "create issue")
		return
	}
	c.JSON(http.StatusCreated, issue)
}

// UpdateIssueStatus overwrites the status of an issue.
func (ic *IssueController) UpdateIssueStatus(c *gin.Context) {
	var input struct {
		Status string `json:"status"`
	}
	if !bindOptionalJSON(c, &input) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	issue, err := ic.issues.UpdateStatus(ctx, c.Param("id"), models.IssueStatus(input.Status))
	if err != nil {
		ic.fail(c, err, "update issue")
		return
	}
	c.JSON(http.StatusOK, issue)
}

// AssignIssue assigns an issue to a department and/or person.
func (ic *IssueController) AssignIssue(c *gin.Context) {
	var input struct {
		Department   string `json:"department"`
		AssignedTo   string `json:"assignedTo"`
		Priority     string `json:"priority"`
		Instructions string `json:"instructions"`
	}
	if !bindOptionalJSON(c, &input) {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	issue, err := ic.issues.Assign(ctx, c.Param("id"), services.AssignInput{
		Department:   input.Department,
		AssignedTo:   input.AssignedTo,
		Priority:     models.IssuePriority(input.Priority),
		Instructions: input.Instructions,
	})
	if err != nil {
		ic.fail(c, err, "assign issue")
		return
	}
	c.JSON(http.StatusOK, issue)
}

// ClearResolved archives all resolved issues. A keepUnresolved flag in the
// body is tolerated and has no effect.
func (ic *IssueController) ClearResolved(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	result, err := ic.archive.ClearResolved(ctx)
	if err != nil {
		ic.fail(c, err, "clear resolved issues")
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteIssue archives and removes an issue.
func (ic *IssueController) DeleteIssue(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	if _, err := ic.issues.Delete(ctx, c.Param("id")); err != nil {
		ic.fail(c, err, "delete issue")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ListArchive returns the archived issues.
func (ic *IssueController) ListArchive(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ic.timeout)
	defer cancel()

	c.JSON(http.StatusOK, ic.archive.List(ctx))
}

func (ic *IssueController) fail(c *gin.Context, err error, action string) {
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	ic.log.Error().Err(err).Str("id", c.Param("id")).Msg(action + " failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
}

// bindOptionalJSON decodes the body into dst. An empty body leaves dst
// zeroed; malformed JSON answers 400 and returns false.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// textField reads a string field. Other JSON values are kept as their JSON
// text; null and absent fields read as empty.
func textField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if v := strings.TrimSpace(string(raw)); v != "null" {
		return v
	}
	return ""
}

func opaqueField(fields map[string]json.RawMessage, key string) any {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

// mediaField reads a media list. A single non-array value becomes a
// one-element list.
func mediaField(fields map[string]json.RawMessage, key string) []any {
	switch v := opaqueField(fields, key).(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{v}
	}
}
