package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "campuspark/internal/errors"
)

// GatewayClient is the HTTP client for the campus chain gateway, the
// service that wraps the deployed parking contracts and exposes
// submit/poll/balance endpoints.
type GatewayClient struct {
	baseURL string
	client  *http.Client
}

func NewGatewayClient(baseURL string) *GatewayClient {
	return &GatewayClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type submitRequest struct {
	Address       string `json:"address"`
	Name          string `json:"name,omitempty"`
	AmountCents   int64  `json:"amount_cents,omitempty"`
	ZoneID        string `json:"zone_id,omitempty"`
	PlateNumber   string `json:"plate_number,omitempty"`
	DurationHours int    `json:"duration_hours,omitempty"`
	Reservation   string `json:"reservation_code,omitempty"`
}

type submitResponse struct {
	Ref string `json:"ref"`
}

type statusResponse struct {
	Status Status `json:"status"`
}

type balanceResponse struct {
	BalanceCents int64 `json:"balance_cents"`
}

func (g *GatewayClient) SubmitDeposit(ctx context.Context, address string, amountCents int64) (string, error) {
	return g.submit(ctx, "/v1/deposits", submitRequest{Address: address, AmountCents: amountCents})
}

func (g *GatewayClient) SubmitWithdrawal(ctx context.Context, address string, amountCents int64) (string, error) {
	return g.submit(ctx, "/v1/withdrawals", submitRequest{Address: address, AmountCents: amountCents})
}

func (g *GatewayClient) MirrorRegisterUser(ctx context.Context, address, name string) (string, error) {
	return g.submit(ctx, "/v1/users", submitRequest{Address: address, Name: name})
}

func (g *GatewayClient) MirrorReserve(ctx context.Context, address, zoneID, plateNumber string, durationHours int) (string, error) {
	return g.submit(ctx, "/v1/reservations", submitRequest{
		Address:       address,
		ZoneID:        zoneID,
		PlateNumber:   plateNumber,
		DurationHours: durationHours,
	})
}

func (g *GatewayClient) MirrorComplete(ctx context.Context, address, reservationCode string) (string, error) {
	return g.submit(ctx, "/v1/reservations/complete", submitRequest{Address: address, Reservation: reservationCode})
}

func (g *GatewayClient) MirrorCancel(ctx context.Context, address, reservationCode string) (string, error) {
	return g.submit(ctx, "/v1/reservations/cancel", submitRequest{Address: address, Reservation: reservationCode})
}

func (g *GatewayClient) PollStatus(ctx context.Context, ref string) (Status, error) {
	var out statusResponse
	if err := g.get(ctx, "/v1/transactions/"+ref, &out); err != nil {
		return "", err
	}
	switch out.Status {
	case StatusPending, StatusConfirmed, StatusFailed:
		return out.Status, nil
	default:
		return "", fmt.Errorf("gateway returned unknown status %q for ref %s", out.Status, ref)
	}
}

func (g *GatewayClient) BalanceOf(ctx context.Context, address string) (int64, error) {
	var out balanceResponse
	if err := g.get(ctx, "/v1/balances/"+address, &out); err != nil {
		return 0, err
	}
	return out.BalanceCents, nil
}

func (g *GatewayClient) submit(ctx context.Context, path string, body submitRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrChainSubmission, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("%w: gateway answered %s for %s", apperrors.ErrChainSubmission, resp.Status, path)
	}
	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decoding gateway response: %v", apperrors.ErrChainSubmission, err)
	}
	if out.Ref == "" {
		return "", fmt.Errorf("%w: gateway returned no reference", apperrors.ErrChainSubmission)
	}
	return out.Ref, nil
}

func (g *GatewayClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway answered %s for %s", resp.Status, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
