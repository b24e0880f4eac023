package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// ErrSettlementDeclined is returned by a Settler that refused the charge.
var ErrSettlementDeclined = errors.New("settlement declined")

// SettlementRequest is one charge handed to a Settler.
type SettlementRequest struct {
	PurchaseID uint
	BuyerID    uint
	ListingID  uint
	Amount     decimal.Decimal
}

// Settler moves money for a purchase and returns the payment reference.
type Settler interface {
	Settle(ctx context.Context, req SettlementRequest) (string, error)
}

// SimulatedSettler approves every charge and issues SIM-<snowflake> references.
type SimulatedSettler struct {
	node *snowflake.Node
}

// NewSimulatedSettler returns a settler whose references are unique per node id (0..1023).
func NewSimulatedSettler(nodeID int64) (*SimulatedSettler, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", nodeID, err)
	}
	return &SimulatedSettler{node: node}, nil
}

func (s *SimulatedSettler) Settle(ctx context.Context, req SettlementRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.Amount.IsNegative() {
		return "", ErrSettlementDeclined
	}
	return "SIM-" + s.node.Generate().String(), nil
}
