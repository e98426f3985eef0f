package container

import (
	"xgains/internal/application/port"
	"xgains/internal/application/service"
	"xgains/internal/domain/gains"
	domainsvc "xgains/internal/domain/service"
)

// Deps 由基础设施层构建后传入
type Deps struct {
	// CLI 读写的默认账本
	Ledger    port.LedgerRepository
	Endpoints map[string]port.LedgerRepository

	Cache   port.CandleCache
	Fetcher port.CandleFetcher
	Market  port.MarketClient
	Orders  port.OrderHistoryClient
	Parsers map[string]port.StatementParser

	Fiat    string
	MaxRows int
}

type Container struct {
	deps Deps

	candleSource  *service.CandleSource
	resolver      *domainsvc.PriceResolver
	reconciler    *domainsvc.LedgerReconciler
	priceService  *service.PriceService
	ledgerService *service.LedgerService
	importService *service.ImportService
	tradeService  *service.TradeService
	pairService   *service.PairService
}

func New(deps Deps) *Container {
	return &Container{
		deps: deps,
	}
}

func (c *Container) Ledger() port.LedgerRepository {
	return c.deps.Ledger
}

func (c *Container) CandleSource() *service.CandleSource {
	if c.candleSource == nil {
		c.candleSource = service.NewCandleSource(c.deps.Cache, c.deps.Fetcher)
	}
	return c.candleSource
}

func (c *Container) Resolver() *domainsvc.PriceResolver {
	if c.resolver == nil {
		c.resolver = domainsvc.NewPriceResolver(c.deps.Fiat, c.CandleSource())
	}
	return c.resolver
}

func (c *Container) Reconciler() *domainsvc.LedgerReconciler {
	if c.reconciler == nil {
		c.reconciler = domainsvc.NewLedgerReconciler(gains.NewFIFO())
	}
	return c.reconciler
}

func (c *Container) PriceService() *service.PriceService {
	if c.priceService == nil {
		c.priceService = service.NewPriceService(c.deps.Ledger, c.Resolver())
	}
	return c.priceService
}

func (c *Container) LedgerService() *service.LedgerService {
	if c.ledgerService == nil {
		c.ledgerService = service.NewLedgerService(c.deps.Endpoints, c.Reconciler(), c.deps.Fiat, c.deps.MaxRows)
	}
	return c.ledgerService
}

func (c *Container) ImportService() *service.ImportService {
	if c.importService == nil {
		c.importService = service.NewImportService(c.deps.Ledger, c.deps.Parsers)
	}
	return c.importService
}

func (c *Container) TradeService() *service.TradeService {
	if c.tradeService == nil {
		c.tradeService = service.NewTradeService(c.deps.Ledger, c.deps.Orders, c.Resolver())
	}
	return c.tradeService
}

func (c *Container) PairService() *service.PairService {
	if c.pairService == nil {
		c.pairService = service.NewPairService(c.deps.Ledger, c.deps.Market)
	}
	return c.pairService
}
