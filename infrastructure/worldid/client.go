package worldid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"goldenticket/models"
	"goldenticket/service"

	log "github.com/sirupsen/logrus"
)

// Client verifies World ID proofs against the developer portal
type Client struct {
	baseURL    string
	appID      string
	action     string
	httpClient *http.Client
}

type verifyRequest struct {
	MerkleRoot        string `json:"merkle_root"`
	NullifierHash     string `json:"nullifier_hash"`
	Proof             string `json:"proof"`
	VerificationLevel string `json:"verification_level,omitempty"`
	Action            string `json:"action"`
	Signal            string `json:"signal"`
}

type verifyResponse struct {
	Success       bool   `json:"success"`
	NullifierHash string `json:"nullifier_hash"`
	Code          string `json:"code"`
	Detail        string `json:"detail"`
}

// NewClient creates a new World ID client
func NewClient(baseURL, appID, action string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		appID:   appID,
		action:  action,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// VerifyProof returns the proof's nullifier hash once the portal accepts it.
// The nullifier is unique per person and action, so it serves as the unique user id.
func (c *Client) VerifyProof(ctx context.Context, proof models.IdentityProof) (string, error) {
	if proof.MerkleRoot == "" || proof.NullifierHash == "" || proof.Proof == "" {
		return "", fmt.Errorf("%w: incomplete proof", service.ErrInvalidInput)
	}

	body, err := json.Marshal(verifyRequest{
		MerkleRoot:        proof.MerkleRoot,
		NullifierHash:     proof.NullifierHash,
		Proof:             proof.Proof,
		VerificationLevel: proof.VerificationLevel,
		Action:            c.action,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal verify request: %w", err)
	}

	url := fmt.Sprintf("%s/verify/%s", c.baseURL, c.appID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send verify request: %w", err)
	}
	defer resp.Body.Close()

	var result verifyResponse
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read verify response: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil && resp.StatusCode == http.StatusOK {
			return "", fmt.Errorf("failed to decode verify response: %w", err)
		}
	}

	logger := log.WithFields(log.Fields{
		"status":        resp.StatusCode,
		"nullifierHash": abbreviate(proof.NullifierHash),
	})

	if resp.StatusCode >= http.StatusInternalServerError {
		logger.Error("World ID verification unavailable")
		return "", fmt.Errorf("world id verification returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK || result.NullifierHash != proof.NullifierHash {
		logger.WithFields(log.Fields{
			"code":   result.Code,
			"detail": result.Detail,
		}).Warn("World ID rejected proof")
		return "", fmt.Errorf("%w: %s", service.ErrIdentityInvalid, rejectionReason(result))
	}

	logger.Info("World ID proof verified")
	return result.NullifierHash, nil
}

func rejectionReason(r verifyResponse) string {
	switch {
	case r.Code != "" && r.Detail != "":
		return fmt.Sprintf("%s (%s)", r.Detail, r.Code)
	case r.Detail != "":
		return r.Detail
	case r.Code != "":
		return r.Code
	default:
		return "verification failed"
	}
}

func abbreviate(s string) string {
	if len(s) <= 10 {
		return s
	}
	return s[:10] + "..."
}
