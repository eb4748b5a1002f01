package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-inventory-pos/internal/middleware"
	"go-inventory-pos/internal/model"
	"go-inventory-pos/internal/service"
	"go-inventory-pos/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubDocuments struct {
	posted *service.PostDocumentRequest
	err    error
}

func (s *stubDocuments) Post(_ context.Context, req *service.PostDocumentRequest) (*model.Document, error) {
	s.posted = req
	if s.err != nil {
		return nil, s.err
	}
	return &model.Document{BranchID: req.BranchID, Operation: req.Operation, Folio: "R-1"}, nil
}

func (s *stubDocuments) Void(_ context.Context, id uuid.UUID, _ string) (*model.Document, error) {
	return nil, s.err
}

func (s *stubDocuments) Get(_ context.Context, id uuid.UUID) (*model.Document, error) {
	return nil, s.err
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop())})
}

func decodeBody(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestErrorHandlerMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperror.ErrNotFound, fiber.StatusNotFound},
		{apperror.ErrDuplicateKey, fiber.StatusConflict},
		{apperror.ErrValidation, fiber.StatusBadRequest},
		{apperror.ErrInsufficientStock, fiber.StatusUnprocessableEntity},
		{apperror.ErrExceedsMaximum, fiber.StatusUnprocessableEntity},
		{apperror.ErrAlreadyOpen, fiber.StatusConflict},
		{apperror.ErrPendingClose, fiber.StatusConflict},
		{apperror.ErrForbidden, fiber.StatusForbidden},
		{apperror.ErrConflict, fiber.StatusConflict},
		{apperror.ErrStoreUnavailable, fiber.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		app := newTestApp()
		failing := tc.err
		app.Get("/", func(c *fiber.Ctx) error { return failing })

		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, tc.status, resp.StatusCode, tc.err.Error())
		body := decodeBody(t, resp.Body)
		assert.Equal(t, string(apperror.KindOf(tc.err)), body["code"])
	}
}

func TestErrorHandlerHidesStoreErrors(t *testing.T) {
	app := newTestApp()
	app.Get("/", func(c *fiber.Ctx) error {
		return errors.New(`pq: password authentication failed for user "pos"`)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	body := decodeBody(t, resp.Body)
	assert.Equal(t, "data store unavailable", body["error"])
}

func TestPostDocument(t *testing.T) {
	docs := &stubDocuments{}
	app := newTestApp()
	h := NewDocumentHandler(docs)
	app.Post("/documents", h.Post)

	branch, product := uuid.New(), uuid.New()
	payload := `{"branch_id":"` + branch.String() + `","user_id":"` + uuid.NewString() + `",
		"operation":"SALE","kind":"RECEIPT",
		"lines":[{"product_id":"` + product.String() + `","quantity":2,"unit_price":"500.00","discount_pct":10}]}`
	req := httptest.NewRequest("POST", "/documents", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	require.NotNil(t, docs.posted)
	assert.Equal(t, branch, docs.posted.BranchID)
	require.Len(t, docs.posted.Lines, 1)
	assert.Equal(t, product, docs.posted.Lines[0].ProductID)
	assert.Equal(t, "500", docs.posted.Lines[0].UnitPrice.String())
	assert.Equal(t, "10", docs.posted.Lines[0].DiscountPct.String())
}

func TestPostDocumentMalformedBody(t *testing.T) {
	app := newTestApp()
	app.Post("/documents", NewDocumentHandler(&stubDocuments{}).Post)

	req := httptest.NewRequest("POST", "/documents", strings.NewReader(`{"lines": [`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestVoidRejectsMalformedID(t *testing.T) {
	app := newTestApp()
	app.Post("/documents/:id/void", NewDocumentHandler(&stubDocuments{}).Void)

	resp, err := app.Test(httptest.NewRequest("POST", "/documents/not-a-uuid/void", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decodeBody(t, resp.Body)["code"])
}

func TestRequireRoleWithoutActor(t *testing.T) {
	app := newTestApp()
	app.Post("/users", middleware.RequireRole(model.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/users", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestDateOnlyRangeEndCoversWholeDay(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*60*60)
	app := newTestApp()
	app.Get("/range", func(c *fiber.Ctx) error {
		from, err := queryTime(c, "from", loc)
		if err != nil {
			return err
		}
		to, err := queryEnd(c, "to", loc)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"from": from.Format(time.RFC3339), "to": to.Format(time.RFC3339)})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/range?from=2026-10-15&to=2026-10-15", nil))
	require.NoError(t, err)
	body := decodeBody(t, resp.Body)
	assert.Equal(t, "2026-10-15T03:00:00Z", body["from"])
	assert.Equal(t, "2026-10-16T03:00:00Z", body["to"])

	resp, err = app.Test(httptest.NewRequest("GET", "/range?to=2026-10-15T12:30:00Z", nil))
	require.NoError(t, err)
	assert.Equal(t, "2026-10-15T12:30:00Z", decodeBody(t, resp.Body)["to"])

	resp, err = app.Test(httptest.NewRequest("GET", "/range?to=15/10/2026", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
