// FILE: venue_rest.go
// Package main – REST venue adapter (execution gateway client).
//
// Talks to an order-execution gateway over HTTP:
//   • SubmitOrder:     POST /orders              {order_id, instrument, side, quantity, type, limit_price}
//   • GetOrderStatus:  GET  /orders/{venue_id}
//   • GetSnapshot:     GET  /snapshot?instrument=...   (doubles as the live MarketFeed)
//
// Gateways report amounts as strings; they are parsed with shopspring/decimal
// and converted to float64 only at this boundary.
//
// Failure classification:
//   • network errors, timeouts, 429 and 5xx → transient (retryable)
//   • any other non-2xx                      → permanent (no retry)
package main

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// RestVenue is a VenueAdapter (and MarketFeed) backed by an HTTP gateway.
type RestVenue struct {
	name string
	hc   *resty.Client
}

func NewRestVenue(name, baseURL string, timeout time.Duration) *RestVenue {
	hc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "swarmtrader/1.0")
	return &RestVenue{name: name, hc: hc}
}

func (v *RestVenue) Name() string { return v.name }

// wire shapes: numeric fields come back as strings
type restOrderResp struct {
	VenueOrderID string `json:"venue_order_id"`
	Status       string `json:"status"`
	FilledQty    string `json:"filled_qty"`
	AvgPrice     string `json:"avg_price"`
	Reason       string `json:"reason,omitempty"`
}

type restSnapshotResp struct {
	Instrument string `json:"instrument"`
	Price      string `json:"price"`
	Volume     string `json:"volume"`
	ObservedAt string `json:"observed_at"`
}

func (v *RestVenue) SubmitOrder(ctx context.Context, req VenueRequest) (VenueOrder, error) {
	body := map[string]string{
		"order_id":   req.OrderID,
		"instrument": req.Instrument,
		"side":       string(req.Side),
		"quantity":   strconv.FormatFloat(req.Quantity, 'f', -1, 64),
		"type":       string(req.Price.Type),
	}
	if req.Price.Type == OrderTypeLimit {
		body["limit_price"] = strconv.FormatFloat(req.Price.LimitPrice, 'f', -1, 64)
	}

	var out restOrderResp
	resp, err := v.hc.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/orders")
	if err := v.classify("submit", resp, err); err != nil {
		return VenueOrder{}, err
	}
	return v.normalize("submit", out)
}

func (v *RestVenue) GetOrderStatus(ctx context.Context, venueOrderID string) (VenueOrder, error) {
	var out restOrderResp
	resp, err := v.hc.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/orders/" + url.PathEscape(venueOrderID))
	if err := v.classify("status", resp, err); err != nil {
		return VenueOrder{}, err
	}
	return v.normalize("status", out)
}

// GetSnapshot lets the gateway double as the live MarketFeed.
func (v *RestVenue) GetSnapshot(ctx context.Context, instrument string) (Snapshot, error) {
	var out restSnapshotResp
	resp, err := v.hc.R().
		SetContext(ctx).
		SetQueryParam("instrument", instrument).
		SetResult(&out).
		Get("/snapshot")
	if err := v.classify("snapshot", resp, err); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	px, err := decimal.NewFromString(out.Price)
	if err != nil || !px.IsPositive() {
		return Snapshot{}, fmt.Errorf("%w: bad price %q", ErrUnavailable, out.Price)
	}
	vol, _ := decimal.NewFromString(out.Volume)
	at, err := time.Parse(time.RFC3339, out.ObservedAt)
	if err != nil {
		at = time.Now().UTC()
	}
	return Snapshot{
		Instrument: out.Instrument,
		Price:      px.InexactFloat64(),
		Volume:     vol.InexactFloat64(),
		ObservedAt: at,
	}, nil
}

// classify converts a resty result into a VenueError with transient/permanent
// classification, or nil on 2xx.
func (v *RestVenue) classify(op string, resp *resty.Response, err error) error {
	if err != nil {
		// transport/timeout path: always retryable
		return &VenueError{Op: op, Code: "network", Transient: true, Err: err}
	}
	code := resp.StatusCode()
	switch {
	case code < 300:
		return nil
	case code == 429 || code >= 500:
		return &VenueError{Op: op, Code: strconv.Itoa(code), Transient: true,
			Err: fmt.Errorf("%s %d: %s", op, code, resp.String())}
	default:
		return &VenueError{Op: op, Code: strconv.Itoa(code), Transient: false,
			Err: fmt.Errorf("%s %d: %s", op, code, resp.String())}
	}
}

// normalize parses the string amounts with decimal before crossing the
// float boundary, so "0.10000000000001"-style gateway noise is dropped where
// the gateway meant an exact figure.
func (v *RestVenue) normalize(op string, out restOrderResp) (VenueOrder, error) {
	var status VenueStatus
	switch out.Status {
	case "accepted", "open", "new":
		status = VenueAccepted
	case "partially_filled", "partial":
		status = VenuePartiallyFilled
	case "filled", "done", "closed":
		status = VenueFilled
	case "rejected", "canceled", "cancelled":
		return VenueOrder{VenueOrderID: out.VenueOrderID, Status: VenueRejected},
			&VenueError{Op: op, Code: out.Status, Transient: false,
				Err: fmt.Errorf("venue rejected order: %s", out.Reason)}
	default:
		return VenueOrder{}, &VenueError{Op: op, Code: "bad_status", Transient: false,
			Err: fmt.Errorf("unknown venue status %q", out.Status)}
	}

	filled := decimal.Zero
	if out.FilledQty != "" {
		d, err := decimal.NewFromString(out.FilledQty)
		if err != nil {
			return VenueOrder{}, &VenueError{Op: op, Code: "bad_qty", Transient: false,
				Err: fmt.Errorf("unparseable filled_qty %q", out.FilledQty)}
		}
		filled = d
	}
	avg := decimal.Zero
	if out.AvgPrice != "" {
		d, err := decimal.NewFromString(out.AvgPrice)
		if err != nil {
			return VenueOrder{}, &VenueError{Op: op, Code: "bad_price", Transient: false,
				Err: fmt.Errorf("unparseable avg_price %q", out.AvgPrice)}
		}
		avg = d
	}

	return VenueOrder{
		VenueOrderID: out.VenueOrderID,
		Status:       status,
		FilledQty:    filled.InexactFloat64(),
		AvgPrice:     avg.InexactFloat64(),
	}, nil
}
