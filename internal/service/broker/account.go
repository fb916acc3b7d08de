package broker

import (
	"context"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
)

// ExposureSource reports total open notional, typically the position ledger.
type ExposureSource interface {
	Exposure() float64
}

// PaperAccount derives account snapshots from the paper broker's virtual cash
// and the open-position exposure.
type PaperAccount struct {
	broker    *Paper
	positions ExposureSource
}

func NewPaperAccount(broker *Paper, positions ExposureSource) *PaperAccount {
	return &PaperAccount{broker: broker, positions: positions}
}

func (a *PaperAccount) Account(ctx context.Context) (*models.AccountState, error) {
	cash := a.broker.Cash()
	var exposure float64
	if a.positions != nil {
		exposure = a.positions.Exposure()
	}
	return &models.AccountState{
		Equity:         cash + exposure,
		Cash:           cash,
		BuyingPower:    cash,
		StartingEquity: a.broker.StartingCash(),
	}, nil
}

var _ domrepo.AccountProvider = (*PaperAccount)(nil)
