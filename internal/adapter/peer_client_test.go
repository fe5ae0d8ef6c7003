// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/identity-host/internal/config"
	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/models"
)

func newTestClient(attempts int) PeerTransferClient {
	return NewPeerTransferClient(config.Peer{
		RequestTimeout:       5 * time.Second,
		OperationMaxAttempts: attempts,
		OperationRetryDelay:  10 * time.Millisecond,
	}, logger.Nop())
}

func testAuthToken() models.ClientAuthToken {
	return models.ClientAuthToken{
		ID:                 uuid.New(),
		AccessTokenHalfKey: []byte("0123456789abcdef"),
	}
}

func testPackage() TransferPackage {
	return TransferPackage{
		Instructions: models.TransferInstructionSet{
			TargetDrive:     models.TargetDrive{Alias: uuid.New(), Type: uuid.New()},
			GlobalTransitID: uuid.New(),
			SendContents:    models.SendContentsAll,
		},
		Metadata: models.FileMetadata{GlobalTransitID: uuid.New(), IsEncrypted: true},
		Payloads: []PayloadPart{
			{Key: "pst_main", ContentType: "application/octet-stream", Content: []byte("payload-bytes")},
		},
	}
}

func writePeerResponse(w http.ResponseWriter, code models.PeerResponseCode) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(peerResponseEnvelope{Code: code})
}

// ── SendHostToHost ──────────────────────────────────────────────────────────

func TestSendHostToHost_Success(t *testing.T) {
	token := testAuthToken()
	pkg := testPackage()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/peer/v1/files", r.URL.Path)

		raw, err := base64.StdEncoding.DecodeString(r.Header.Get(headerClientAuthToken))
		require.NoError(t, err)
		parsed, err := models.ClientAuthTokenFromPortableBytes(raw)
		require.NoError(t, err)
		assert.Equal(t, token.ID, parsed.ID)
		assert.Equal(t, token.AccessTokenHalfKey, parsed.AccessTokenHalfKey)

		require.NoError(t, r.ParseMultipartForm(1<<20))

		instructionsFile, _, err := r.FormFile(partInstructions)
		require.NoError(t, err)
		var instructions models.TransferInstructionSet
		require.NoError(t, json.NewDecoder(instructionsFile).Decode(&instructions))
		assert.Equal(t, pkg.Instructions.GlobalTransitID, instructions.GlobalTransitID)

		_, _, err = r.FormFile(partMetadata)
		require.NoError(t, err)
		_, _, err = r.FormFile("pst_main")
		require.NoError(t, err)

		writePeerResponse(w, models.PeerResponseAcceptedIntoInbox)
	}))
	defer srv.Close()

	code, err := newTestClient(1).SendHostToHost(context.Background(), srv.URL, token, pkg)

	require.NoError(t, err)
	assert.Equal(t, models.PeerResponseAcceptedIntoInbox, code)
}

func TestSendHostToHost_AccessDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("sender not connected"))
	}))
	defer srv.Close()

	_, err := newTestClient(1).SendHostToHost(context.Background(), srv.URL, testAuthToken(), testPackage())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPeerAccessDenied)
}

func TestSendHostToHost_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(1).SendHostToHost(context.Background(), srv.URL, testAuthToken(), testPackage())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPeerServerError)
}

func TestSendHostToHost_RetriesTransportFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			// Kill the connection so the client sees a transport error,
			// not an HTTP status.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		writePeerResponse(w, models.PeerResponseAcceptedIntoInbox)
	}))
	defer srv.Close()

	code, err := newTestClient(2).SendHostToHost(context.Background(), srv.URL, testAuthToken(), testPackage())

	require.NoError(t, err)
	assert.Equal(t, models.PeerResponseAcceptedIntoInbox, code)
	assert.Equal(t, 2, calls)
}

func TestSendHostToHost_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newTestClient(1).SendHostToHost(context.Background(), srv.URL, testAuthToken(), testPackage())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPeerUnreachable)
}

// ── UpdatePayloads ──────────────────────────────────────────────────────────

func TestUpdatePayloads_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/peer/v1/files/payloads", r.URL.Path)
		writePeerResponse(w, models.PeerResponseAcceptedDirectWrite)
	}))
	defer srv.Close()

	code, err := newTestClient(1).UpdatePayloads(context.Background(), srv.URL, testAuthToken(), testPackage())

	require.NoError(t, err)
	assert.Equal(t, models.PeerResponseAcceptedDirectWrite, code)
}

// ── DeleteLinkedFile ────────────────────────────────────────────────────────

func TestDeleteLinkedFile_Success(t *testing.T) {
	file := models.GlobalTransitFileIdentifier{
		TargetDrive:     models.TargetDrive{Alias: uuid.New(), Type: uuid.New()},
		GlobalTransitID: uuid.New(),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/peer/v1/files/delete", r.URL.Path)

		var got models.GlobalTransitFileIdentifier
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, file, got)

		writePeerResponse(w, models.PeerResponseAcceptedIntoInbox)
	}))
	defer srv.Close()

	code, err := newTestClient(1).DeleteLinkedFile(context.Background(), srv.URL, testAuthToken(), file)

	require.NoError(t, err)
	assert.Equal(t, models.PeerResponseAcceptedIntoInbox, code)
}

// ── MarkFileAsRead ──────────────────────────────────────────────────────────

func TestMarkFileAsRead_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/peer/v1/files/mark-read", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("unknown file"))
	}))
	defer srv.Close()

	_, err := newTestClient(1).MarkFileAsRead(context.Background(), srv.URL, testAuthToken(), models.GlobalTransitFileIdentifier{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPeerRejected)
}

// ── Classification ──────────────────────────────────────────────────────────

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want models.TransferResult
	}{
		{"nil", nil, models.TransferResultSuccess},
		{"unreachable", ErrPeerUnreachable, models.TransferResultRecipientServerNotResponding},
		{"cancelled", context.Canceled, models.TransferResultProcessingCancelled},
		{"access denied", ErrPeerAccessDenied, models.TransferResultRecipientReturnedAccessDenied},
		{"server error", ErrPeerServerError, models.TransferResultRecipientServerError},
		{"rejected", ErrPeerRejected, models.TransferResultRecipientServerRejected},
		{"unknown", assert.AnError, models.TransferResultUnknownError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestClassifyPeerResponse(t *testing.T) {
	tests := []struct {
		name string
		code models.PeerResponseCode
		want models.TransferResult
	}{
		{"accepted inbox", models.PeerResponseAcceptedIntoInbox, models.TransferResultSuccess},
		{"accepted direct", models.PeerResponseAcceptedDirectWrite, models.TransferResultSuccess},
		{"sender not connected", models.PeerResponseQuarantinedSenderNotConnected, models.TransferResultRecipientReturnedAccessDenied},
		{"access denied", models.PeerResponseAccessDenied, models.TransferResultRecipientReturnedAccessDenied},
		{"quarantined payload", models.PeerResponseQuarantinedPayload, models.TransferResultRecipientServerRejected},
		{"rejected", models.PeerResponseRejected, models.TransferResultRecipientServerRejected},
		{"unknown", models.PeerResponseUnknown, models.TransferResultUnknownError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPeerResponse(tt.code))
		})
	}
}

func TestPeerURL(t *testing.T) {
	tests := []struct {
		name      string
		recipient string
		want      string
	}{
		{"bare domain", "bob.example.org", "https://bob.example.org/api/peer/v1/files"},
		{"trailing slash", "bob.example.org/", "https://bob.example.org/api/peer/v1/files"},
		{"explicit scheme", "http://127.0.0.1:9000", "http://127.0.0.1:9000/api/peer/v1/files"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, peerURL(tt.recipient, "/files"))
		})
	}
}
