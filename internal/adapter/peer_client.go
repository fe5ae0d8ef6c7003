// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"

	"github.com/MKhiriev/identity-host/internal/config"
	"github.com/MKhiriev/identity-host/internal/logger"
	"github.com/MKhiriev/identity-host/models"
)

const (
	// headerClientAuthToken carries the base64 portable form of the
	// recipient-issued client auth token.
	headerClientAuthToken = "X-IDH-Client-Auth-Token"

	peerAPIBase = "/api/peer/v1"

	partInstructions = "instructions"
	partMetadata     = "metadata"
)

type peerTransferClient struct {
	client      *resty.Client
	maxAttempts int
	retryDelay  time.Duration
	logger      *logger.Logger
}

// NewPeerTransferClient builds the outbound host-to-host transport from the
// peer section of the host configuration.
func NewPeerTransferClient(cfg config.Peer, log *logger.Logger) PeerTransferClient {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.OperationMaxAttempts <= 0 {
		cfg.OperationMaxAttempts = 1
	}
	if cfg.OperationRetryDelay <= 0 {
		cfg.OperationRetryDelay = 2 * time.Second
	}

	cli := resty.New().SetTimeout(cfg.RequestTimeout)

	return &peerTransferClient{
		client:      cli,
		maxAttempts: cfg.OperationMaxAttempts,
		retryDelay:  cfg.OperationRetryDelay,
		logger:      log,
	}
}

func (p *peerTransferClient) SendHostToHost(ctx context.Context, recipient string, token models.ClientAuthToken, pkg TransferPackage) (models.PeerResponseCode, error) {
	instructions, err := json.Marshal(pkg.Instructions)
	if err != nil {
		return models.PeerResponseUnknown, fmt.Errorf("encode transfer instructions: %w", err)
	}
	metadata, err := json.Marshal(pkg.Metadata)
	if err != nil {
		return models.PeerResponseUnknown, fmt.Errorf("encode file metadata: %w", err)
	}

	return p.execute(ctx, http.MethodPost, peerURL(recipient, "/files"), func(req *resty.Request) *resty.Request {
		authRequest(req, token).
			SetMultipartField(partInstructions, partInstructions+".json", "application/json", bytes.NewReader(instructions)).
			SetMultipartField(partMetadata, partMetadata+".json", "application/json", bytes.NewReader(metadata))
		for _, part := range pkg.Payloads {
			req.SetMultipartField(part.Key, part.Key, part.ContentType, bytes.NewReader(part.Content))
		}
		return req
	})
}

func (p *peerTransferClient) UpdatePayloads(ctx context.Context, recipient string, token models.ClientAuthToken, pkg TransferPackage) (models.PeerResponseCode, error) {
	instructions, err := json.Marshal(pkg.Instructions)
	if err != nil {
		return models.PeerResponseUnknown, fmt.Errorf("encode transfer instructions: %w", err)
	}

	return p.execute(ctx, http.MethodPatch, peerURL(recipient, "/files/payloads"), func(req *resty.Request) *resty.Request {
		authRequest(req, token).
			SetMultipartField(partInstructions, partInstructions+".json", "application/json", bytes.NewReader(instructions))
		for _, part := range pkg.Payloads {
			req.SetMultipartField(part.Key, part.Key, part.ContentType, bytes.NewReader(part.Content))
		}
		return req
	})
}

func (p *peerTransferClient) DeleteLinkedFile(ctx context.Context, recipient string, token models.ClientAuthToken, file models.GlobalTransitFileIdentifier) (models.PeerResponseCode, error) {
	return p.execute(ctx, http.MethodPost, peerURL(recipient, "/files/delete"), func(req *resty.Request) *resty.Request {
		return authRequest(req, token).
			SetHeader("Content-Type", "application/json").
			SetBody(file)
	})
}

func (p *peerTransferClient) MarkFileAsRead(ctx context.Context, recipient string, token models.ClientAuthToken, file models.GlobalTransitFileIdentifier) (models.PeerResponseCode, error) {
	return p.execute(ctx, http.MethodPost, peerURL(recipient, "/files/mark-read"), func(req *resty.Request) *resty.Request {
		return authRequest(req, token).
			SetHeader("Content-Type", "application/json").
			SetBody(file)
	})
}

// execute runs one peer call with bounded in-call retries. Only transport
// failures are retried; any HTTP response, success or not, ends the retry
// loop. The request is rebuilt on every attempt because multipart bodies are
// backed by readers that a retry would find already drained.
func (p *peerTransferClient) execute(ctx context.Context, method, url string, build func(*resty.Request) *resty.Request) (models.PeerResponseCode, error) {
	log := logger.FromContext(ctx)

	var resp *resty.Response
	backoff := retry.WithMaxRetries(uint64(p.maxAttempts-1), retry.NewConstant(p.retryDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, reqErr := build(p.client.R().SetContext(ctx)).Execute(method, url)
		if reqErr != nil {
			log.Warn().Err(reqErr).
				Str("func", "adapter.peerTransferClient.execute").
				Str("url", url).
				Msg("peer request transport failure")
			return retry.RetryableError(fmt.Errorf("%w: %w", ErrPeerUnreachable, reqErr))
		}
		resp = r
		return nil
	})
	if err != nil {
		return models.PeerResponseUnknown, err
	}
	if err = mapHTTPError(resp); err != nil {
		return models.PeerResponseUnknown, err
	}

	return decodePeerResponse(resp)
}

// peerResponseEnvelope is the JSON body a receiving host returns for every
// accepted peer call.
type peerResponseEnvelope struct {
	Code models.PeerResponseCode `json:"code"`
}

func decodePeerResponse(resp *resty.Response) (models.PeerResponseCode, error) {
	var envelope peerResponseEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return models.PeerResponseUnknown, fmt.Errorf("decode peer response: %w", err)
	}
	return envelope.Code, nil
}

func authRequest(req *resty.Request, token models.ClientAuthToken) *resty.Request {
	return req.SetHeader(headerClientAuthToken, base64.StdEncoding.EncodeToString(token.ToPortableBytes()))
}

// peerURL builds the full endpoint URL for a recipient identity. Recipients
// are bare federation domains; a scheme is only kept when the caller already
// supplied one, which happens in tests running against a local server.
func peerURL(recipient, path string) string {
	recipient = strings.TrimRight(strings.TrimSpace(recipient), "/")
	if !strings.Contains(recipient, "://") {
		recipient = "https://" + recipient
	}
	return recipient + peerAPIBase + path
}
