package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finishpro/admin-backend/internal/notifications"
	"github.com/finishpro/admin-backend/pkg/enums"
	pkgerrors "github.com/finishpro/admin-backend/pkg/errors"
)

type feedStub struct {
	listed    []notifications.ListParams
	read      []uuid.UUID
	readErr   error
	markedAll int64
}

func (s *feedStub) List(_ context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	s.listed = append(s.listed, params)
	return &notifications.ListResult{Items: []notifications.Notification{}, Unread: 4}, nil
}

func (s *feedStub) MarkRead(_ context.Context, id uuid.UUID) error {
	s.read = append(s.read, id)
	return s.readErr
}

func (s *feedStub) MarkAllRead(context.Context) (int64, error) {
	return s.markedAll, nil
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
}

func TestListNotificationsQuery(t *testing.T) {
	cases := []struct {
		name   string
		query  string
		status int
		want   notifications.ListParams
	}{
		{"defaults", "", http.StatusOK, notifications.ListParams{Limit: 25}},
		{"all filters", "?limit=5&cursor=xyz&unreadOnly=true&type=compensation_failed", http.StatusOK, notifications.ListParams{Limit: 5, Cursor: "xyz", UnreadOnly: true}},
		{"bad bool", "?unreadOnly=perhaps", http.StatusBadRequest, notifications.ListParams{}},
		{"bad type", "?type=digest", http.StatusBadRequest, notifications.ListParams{}},
		{"limit out of range", "?limit=0", http.StatusBadRequest, notifications.ListParams{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &feedStub{}
			rec := httptest.NewRecorder()
			ListNotifications(svc, testLogger())(rec, httptest.NewRequest(http.MethodGet, "/api/admin/v1/notifications"+tc.query, nil))

			require.Equal(t, tc.status, rec.Code)
			if tc.status != http.StatusOK {
				assert.Empty(t, svc.listed)
				return
			}
			require.Len(t, svc.listed, 1)
			got := svc.listed[0]
			assert.Equal(t, tc.want.Limit, got.Limit)
			assert.Equal(t, tc.want.Cursor, got.Cursor)
			assert.Equal(t, tc.want.UnreadOnly, got.UnreadOnly)

			var body notifications.ListResult
			decodeData(t, rec, &body)
			assert.EqualValues(t, 4, body.Unread)
		})
	}
}

func TestListNotificationsPassesType(t *testing.T) {
	svc := &feedStub{}
	rec := httptest.NewRecorder()
	ListNotifications(svc, testLogger())(rec, httptest.NewRequest(http.MethodGet, "/x?type=invoice_paid", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.listed[0].Type)
	assert.Equal(t, enums.NotificationTypeInvoicePaid, *svc.listed[0].Type)
}

func TestMarkNotificationRead(t *testing.T) {
	id := uuid.New()
	svc := &feedStub{}
	rec := httptest.NewRecorder()
	MarkNotificationRead(svc, testLogger())(rec, addRouteParam(httptest.NewRequest(http.MethodPost, "/x", nil), "notificationId", id.String()))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uuid.UUID{id}, svc.read)
	var body map[string]bool
	decodeData(t, rec, &body)
	assert.True(t, body["read"])
}

func TestMarkNotificationReadErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	MarkNotificationRead(&feedStub{}, testLogger())(rec, addRouteParam(httptest.NewRequest(http.MethodPost, "/x", nil), "notificationId", "invalid"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc := &feedStub{readErr: pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")}
	rec = httptest.NewRecorder()
	MarkNotificationRead(svc, testLogger())(rec, addRouteParam(httptest.NewRequest(http.MethodPost, "/x", nil), "notificationId", uuid.NewString()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkAllNotificationsRead(t *testing.T) {
	rec := httptest.NewRecorder()
	MarkAllNotificationsRead(&feedStub{markedAll: 5}, testLogger())(rec, httptest.NewRequest(http.MethodPost, "/x", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]int64
	decodeData(t, rec, &body)
	assert.EqualValues(t, 5, body["updated"])
}

func TestNotificationRoutesWithoutService(t *testing.T) {
	rec := httptest.NewRecorder()
	MarkAllNotificationsRead(nil, testLogger())(rec, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
