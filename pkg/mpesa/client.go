package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Client talks to the Daraja STK push API. Tokens are fetched per call, not
// cached: a stale-token branch is not worth the latency saved here.
type Client struct {
	cfg     *Config
	auth    *resty.Client
	api     *resty.Client
	breaker *gobreaker.CircuitBreaker
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type StatusResult struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	MerchantRequestID   string `json:"MerchantRequestID,omitempty"`
	CheckoutRequestID   string `json:"CheckoutRequestID,omitempty"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

func NewClient(cfg *Config) *Client {
	return &Client{
		cfg: cfg,
		auth: resty.New().
			SetTimeout(cfg.AuthTimeout).
			SetRetryCount(0),
		api: resty.New().
			SetTimeout(cfg.PushTimeout).
			SetRetryCount(0),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     "mpesa",
			Interval: 15 * time.Second,
			Timeout:  30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				log.WithFields(log.Fields{"circuit": name, "from": from.String(), "to": to.String()}).
					Info("gateway circuit breaker state changed")
			},
		}),
	}
}

// NormalizePhone rewrites local-format Kenyan numbers to the canonical
// 254-prefixed digit string the gateway expects.
func NormalizePhone(phone string) string {
	if strings.HasPrefix(phone, "0") {
		return "254" + phone[1:]
	}
	if strings.HasPrefix(phone, "+254") {
		return phone[1:]
	}
	return phone
}

// RoundAmount rounds to the nearest whole unit; the gateway rejects
// fractional amounts.
func RoundAmount(amount float64) int64 {
	return int64(math.Round(amount))
}

func (c *Client) timestamp() string {
	return time.Now().Format("20060102150405")
}

func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.Shortcode + c.cfg.Passkey + timestamp))
}

// Authenticate exchanges the consumer key/secret for a short-lived bearer
// token.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	if missing := c.cfg.Missing(); len(missing) > 0 {
		return "", &ConfigError{Missing: missing}
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.auth.R().
			SetContext(ctx).
			SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret).
			Get(c.cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, &GatewayError{Status: resp.StatusCode(), Body: resp.String()}
		}
		var body struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return nil, err
		}
		return body.AccessToken, nil
	})
	if err != nil {
		log.WithError(err).Error("failed to get M-Pesa access token")
		return "", &AuthError{Err: err}
	}
	return out.(string), nil
}

// InitiateSTKPush asks the provider to raise a PIN prompt on the payer's
// phone. The returned CheckoutRequestID correlates the eventual callback.
func (c *Client) InitiateSTKPush(ctx context.Context, phone string, amount float64, description string) (*STKPushResponse, error) {
	formattedPhone := NormalizePhone(phone)

	token, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.timestamp()
	payload := map[string]interface{}{
		"BusinessShortCode": c.cfg.Shortcode,
		"Password":          c.password(timestamp),
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            RoundAmount(amount),
		"PartyA":            formattedPhone,
		"PartyB":            c.cfg.Shortcode,
		"PhoneNumber":       formattedPhone,
		"CallBackURL":       c.cfg.CallbackURL,
		"AccountReference":  "NexaChat",
		"TransactionDesc":   description,
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.api.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetHeader("Content-Type", "application/json").
			SetBody(payload).
			Post(c.cfg.BaseURL + "/mpesa/stkpush/v1/processrequest")
		if err != nil {
			return nil, &GatewayError{Err: err}
		}
		if resp.IsError() {
			return nil, &GatewayError{Status: resp.StatusCode(), Body: resp.String()}
		}
		var body STKPushResponse
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return nil, &GatewayError{Err: err}
		}
		return &body, nil
	})
	if err != nil {
		log.WithError(err).WithField("phone", formattedPhone).Error("STK push failed")
		if gerr, ok := err.(*GatewayError); ok {
			return nil, gerr
		}
		return nil, &GatewayError{Err: err}
	}

	res := out.(*STKPushResponse)
	log.WithFields(log.Fields{
		"checkout_request_id": res.CheckoutRequestID,
		"merchant_request_id": res.MerchantRequestID,
	}).Info("STK push accepted")
	return res, nil
}

// QueryStatus asks the provider where a push stands. A 404 or the provider's
// transient error code means the prompt has not settled yet, which callers
// must be able to tell apart from a real failure, so it comes back as a
// synthetic still-processing result instead of an error.
func (c *Client) QueryStatus(ctx context.Context, checkoutRequestID string) (*StatusResult, error) {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.timestamp()
	payload := map[string]interface{}{
		"BusinessShortCode": c.cfg.Shortcode,
		"Password":          c.password(timestamp),
		"Timestamp":         timestamp,
		"CheckoutRequestID": checkoutRequestID,
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.api.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetHeader("Content-Type", "application/json").
			SetBody(payload).
			Post(c.cfg.BaseURL + "/mpesa/stkpushquery/v1/query")
		if err != nil {
			return nil, &GatewayError{Err: err}
		}
		if resp.IsError() {
			if stillProcessing(resp.StatusCode(), resp.Body()) {
				return &StatusResult{
					ResponseCode:        "1",
					ResponseDescription: "Transaction still processing or not found",
					ResultCode:          "1",
					ResultDesc:          "Transaction still processing",
				}, nil
			}
			return nil, &GatewayError{Status: resp.StatusCode(), Body: resp.String()}
		}
		var body StatusResult
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return nil, &GatewayError{Err: err}
		}
		return &body, nil
	})
	if err != nil {
		log.WithError(err).WithField("checkout_request_id", checkoutRequestID).Error("status query failed")
		if gerr, ok := err.(*GatewayError); ok {
			return nil, gerr
		}
		return nil, &GatewayError{Err: err}
	}
	return out.(*StatusResult), nil
}

func stillProcessing(status int, body []byte) bool {
	if status == 404 {
		return true
	}
	var e struct {
		ErrorCode string `json:"errorCode"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return false
	}
	return e.ErrorCode == "500.001.1001"
}
