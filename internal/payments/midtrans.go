package payments

import (
	"context"
	"fmt"

	"classbook/pkg/logger"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
)

// charger is the part of coreapi.Client used here.
type charger interface {
	ChargeTransaction(req *coreapi.ChargeReq) (*coreapi.ChargeResponse, *midtrans.Error)
}

// MidtransGateway charges a tokenized card through the Midtrans core API.
type MidtransGateway struct {
	client charger
	log    *logger.Logger
}

func NewMidtransGateway(serverKey string, production bool, log *logger.Logger) *MidtransGateway {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}

	var client coreapi.Client
	client.New(serverKey, env)

	return &MidtransGateway{
		client: &client,
		log:    log,
	}
}

func (g *MidtransGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chargeReq := &coreapi.ChargeReq{
		PaymentType: coreapi.PaymentTypeCreditCard,
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: req.Amount,
		},
		CreditCard: &coreapi.CreditCardDetails{
			TokenID: req.CardToken,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    req.ItemID,
				Name:  truncate(req.ItemName, 50),
				Price: req.Amount,
				Qty:   1,
			},
		},
	}

	resp, merr := g.client.ChargeTransaction(chargeReq)
	// ChargeTransaction returns a *midtrans.Error; never let a typed nil
	// escape as a non-nil error interface.
	if merr != nil {
		if merr.StatusCode >= 400 && merr.StatusCode < 500 {
			g.log.Info("Midtrans rejected charge", "order_id", req.OrderID, "status_code", merr.StatusCode)
			return nil, fmt.Errorf("%w: %s", ErrDeclined, merr.GetMessage())
		}
		return nil, fmt.Errorf("midtrans charge failed: %s", merr.GetMessage())
	}
	if resp == nil {
		return nil, fmt.Errorf("midtrans charge returned no response")
	}

	if !approved(resp) {
		g.log.Info("Midtrans declined charge",
			"order_id", req.OrderID,
			"transaction_status", resp.TransactionStatus,
			"fraud_status", resp.FraudStatus,
		)
		return nil, fmt.Errorf("%w: %s", ErrDeclined, resp.StatusMessage)
	}

	return &ChargeResult{
		Reference: resp.TransactionID,
		Status:    resp.TransactionStatus,
	}, nil
}

func approved(resp *coreapi.ChargeResponse) bool {
	switch resp.TransactionStatus {
	case "capture":
		return resp.FraudStatus == "" || resp.FraudStatus == "accept"
	case "settlement":
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
