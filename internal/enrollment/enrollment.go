package enrollment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	customError "github.com/coursebill/installment-engine/pkg/errors"
)

// Service is the enrollment collaborator. Enroll adds a payer to a
// charge's beneficiary set and must be idempotent on the target side:
// settlement fires it at-least-once, and redelivered callbacks may
// re-attempt it through a different code path.
type Service interface {
	// IsEnrolled reports whether the payer already holds the charge
	IsEnrolled(ctx context.Context, payerID, chargeID string) (bool, error)

	// Enroll adds the payer to the charge's beneficiary set (idempotent)
	Enroll(ctx context.Context, payerID, chargeID string) error
}

type httpService struct {
	baseURL string
	client  *http.Client
}

// NewHTTPService returns a Service backed by the course/identity system's
// REST API.
func NewHTTPService(baseURL string, timeout time.Duration) Service {
	return &httpService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *httpService) IsEnrolled(ctx context.Context, payerID, chargeID string) (bool, error) {
	url := fmt.Sprintf("%s/v1/enrollments/%s/%s", s.baseURL, chargeID, payerID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, customError.WrapEnrollmentError(err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, customError.WrapEnrollmentError(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, customError.WrapEnrollmentError(fmt.Errorf("enrollment service returned status %d", resp.StatusCode))
	}
}

func (s *httpService) Enroll(ctx context.Context, payerID, chargeID string) error {
	body, err := json.Marshal(map[string]string{
		"payer_id":  payerID,
		"charge_id": chargeID,
	})
	if err != nil {
		return customError.WrapEnrollmentError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/enrollments", bytes.NewReader(body))
	if err != nil {
		return customError.WrapEnrollmentError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return customError.WrapEnrollmentError(err)
	}
	defer resp.Body.Close()

	// 409 means the payer is already a beneficiary, which is exactly the
	// idempotent outcome settlement relies on.
	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return customError.WrapEnrollmentError(fmt.Errorf("enrollment service returned status %d", resp.StatusCode))
	}

	return nil
}
