package payments

import (
	"context"
	"errors"
	"testing"

	"classbook/pkg/logger"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
)

type mockCharger struct {
	chargeFunc func(req *coreapi.ChargeReq) (*coreapi.ChargeResponse, *midtrans.Error)
	last       *coreapi.ChargeReq
}

func (m *mockCharger) ChargeTransaction(req *coreapi.ChargeReq) (*coreapi.ChargeResponse, *midtrans.Error) {
	m.last = req
	return m.chargeFunc(req)
}

func TestMidtransGateway_Charge(t *testing.T) {
	tests := []struct {
		name        string
		resp        *coreapi.ChargeResponse
		merr        *midtrans.Error
		wantDecline bool
		wantErr     bool
		wantRef     string
	}{
		{
			name:    "captured",
			resp:    &coreapi.ChargeResponse{TransactionID: "tx-1", TransactionStatus: "capture", FraudStatus: "accept"},
			wantRef: "tx-1",
		},
		{
			name:        "fraud challenge",
			resp:        &coreapi.ChargeResponse{TransactionStatus: "capture", FraudStatus: "challenge"},
			wantErr:     true,
			wantDecline: true,
		},
		{
			name:        "denied",
			resp:        &coreapi.ChargeResponse{TransactionStatus: "deny", StatusMessage: "card denied"},
			wantErr:     true,
			wantDecline: true,
		},
		{
			name:        "client error",
			merr:        &midtrans.Error{Message: "invalid token", StatusCode: 400},
			wantErr:     true,
			wantDecline: true,
		},
		{
			name:    "provider down",
			merr:    &midtrans.Error{Message: "bad gateway", StatusCode: 502},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &mockCharger{
				chargeFunc: func(*coreapi.ChargeReq) (*coreapi.ChargeResponse, *midtrans.Error) {
					return tt.resp, tt.merr
				},
			}
			g := &MidtransGateway{client: c, log: logger.Discard()}

			res, err := g.Charge(context.Background(), ChargeRequest{
				OrderID:   "order-1",
				Amount:    150000,
				CardToken: "tok",
				ItemID:    "pkg-1",
				ItemName:  "10 credits",
			})

			if (err != nil) != tt.wantErr {
				t.Fatalf("Charge() error = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(err, ErrDeclined) != tt.wantDecline {
				t.Errorf("declined = %v, want %v (err %v)", errors.Is(err, ErrDeclined), tt.wantDecline, err)
			}
			if !tt.wantErr && res.Reference != tt.wantRef {
				t.Errorf("reference = %q, want %q", res.Reference, tt.wantRef)
			}
			if c.last.TransactionDetails.GrossAmt != 150000 || c.last.CreditCard.TokenID != "tok" {
				t.Errorf("unexpected charge request: %+v", c.last)
			}
		})
	}
}

func TestMockGateway(t *testing.T) {
	g := NewMockGateway(false)
	res, err := g.Charge(context.Background(), ChargeRequest{OrderID: "o1", Amount: 10})
	if err != nil || res.Reference == "" {
		t.Fatalf("Charge() = %v, %v", res, err)
	}

	g.Decline = true
	if _, err := g.Charge(context.Background(), ChargeRequest{OrderID: "o2"}); !errors.Is(err, ErrDeclined) {
		t.Errorf("expected ErrDeclined, got %v", err)
	}
	if len(g.Requests()) != 2 {
		t.Errorf("requests = %d, want 2", len(g.Requests()))
	}
}
