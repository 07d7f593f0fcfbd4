package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/hmkt/market/internal/core/domain"
	"github.com/hmkt/market/internal/port"
)

// MarketService orchestrates buy and offer transactions across the two
// execution domains: listing rows live behind the serialized storage worker,
// economy and inventory effects run on the host's synchronous context.
type MarketService struct {
	store     port.ListingStore
	fees      *FeeModel
	economy   port.Economy
	inventory port.Inventory
	codec     port.ItemCodec
	notifier  port.Notifier
	scheduler port.SyncScheduler
}

// Deps collects the capabilities a MarketService needs.
type Deps struct {
	Store     port.ListingStore
	Fees      *FeeModel
	Economy   port.Economy
	Inventory port.Inventory
	Codec     port.ItemCodec
	Notifier  port.Notifier
	Scheduler port.SyncScheduler
}

func NewMarketService(deps Deps) *MarketService {
	return &MarketService{
		store:     deps.Store,
		fees:      deps.Fees,
		economy:   deps.Economy,
		inventory: deps.Inventory,
		codec:     deps.Codec,
		notifier:  deps.Notifier,
		scheduler: deps.Scheduler,
	}
}

// Offer lists item for sale on market at the given unit price. The listing
// fee is withdrawn and the items removed from the seller before the row is
// persisted; when the market is at capacity both effects are reversed once.
func (s *MarketService) Offer(ctx context.Context, seller, market uuid.UUID, item port.Item, price float64) domain.OfferResult {
	if price <= 0 || price >= domain.MaxPrice {
		return domain.OfferFail(domain.OfferInvalidPrice)
	}
	fee := s.fees.ListingFee(ctx, market)
	limit := s.fees.SlotLimit(ctx, market)
	qty := item.Amount()

	status := domain.OfferSuccess
	if err := s.scheduler.Run(ctx, func() error {
		if !s.inventory.HasItem(seller, item, qty) {
			status = domain.OfferNotEnoughItems
			return nil
		}
		if s.economy.Balance(seller) < fee {
			status = domain.OfferNotEnoughMoney
			return nil
		}
		if !s.inventory.RemoveItem(seller, item, qty) {
			status = domain.OfferNotEnoughItems
			return nil
		}
		if !s.economy.Withdraw(seller, fee) {
			status = domain.OfferNotEnoughMoney
			return nil
		}
		return nil
	}); err != nil {
		log.Printf("market: offer by %s not scheduled: %v", seller, err)
		return domain.OfferFail(domain.OfferTaskFailed)
	}
	if status != domain.OfferSuccess {
		return domain.OfferFail(status)
	}

	payload, err := s.codec.Serialize(item)
	if err != nil {
		log.Printf("market: offer by %s lost to codec failure: %v (item %s x%d, fee %.2f withdrawn)", seller, err, item.Name(), qty, fee)
		return domain.OfferFail(domain.OfferDatabaseError)
	}

	id, ok, err := s.store.Create(ctx, payload, qty, seller, market, price, limit)
	if err != nil {
		log.Printf("market: offer by %s failed to persist: %v (item %s x%d, fee %.2f withdrawn)", seller, err, item.Name(), qty, fee)
		return domain.OfferFail(domain.OfferDatabaseError)
	}
	if !ok {
		s.compensateOffer(ctx, seller, item, fee)
		return domain.OfferFail(domain.OfferNotEnoughSpace)
	}

	if err := s.scheduler.Run(ctx, func() error {
		if !s.economy.DepositVault(fee) {
			log.Printf("market: listing fee %.2f from %s not banked in vault", fee, seller)
		}
		if domain.IsSystemMarket(market) {
			s.notifier.Broadcast(fmt.Sprintf("%s x%d is up for sale at %.2f each", item.Name(), qty, price))
		}
		s.notifier.UIRefresh(market)
		return nil
	}); err != nil {
		log.Printf("market: offer %d finalization not scheduled: %v", id, err)
		return domain.OfferFail(domain.OfferTaskFailed)
	}

	log.Printf("market: %s offered %s x%d for %.2f on market %s (listing %d, fee %.2f)", seller, item.Name(), qty, price, market, id, fee)
	return domain.OfferOK(id)
}

// compensateOffer reverses an offer's committed effects after a capacity
// rejection. Attempted once; its own failure is logged, nothing more.
func (s *MarketService) compensateOffer(ctx context.Context, seller uuid.UUID, item port.Item, fee float64) {
	if err := s.scheduler.Run(ctx, func() error {
		s.inventory.GiveOrDrop(seller, item)
		if !s.economy.Deposit(seller, fee) {
			return fmt.Errorf("fee refund declined")
		}
		return nil
	}); err != nil {
		log.Printf("market: offer compensation for %s failed: %v (item %s x%d, fee %.2f)", seller, err, item.Name(), item.Amount(), fee)
	}
}

// Buy purchases amount units of listing itemID on market for buyer.
//
// Phase 1 validates the listing and reserves the buyer's funds on the
// synchronous context. Phase 2 commits through a price-conditioned decrement;
// losing that race refunds the reservation. Settlement failures after the
// decrement committed are logged for manual reconciliation, never rolled
// back.
func (s *MarketService) Buy(ctx context.Context, buyer, market uuid.UUID, itemID int64, amount int) domain.BuyResult {
	listing, err := s.store.Get(ctx, itemID)
	if err != nil {
		log.Printf("market: buy of listing %d failed to load: %v", itemID, err)
		return domain.BuyFail(domain.BuyItemNotFound)
	}
	if listing == nil {
		return domain.BuyFail(domain.BuyItemNotFound)
	}
	if listing.Market != market {
		return domain.BuyFail(domain.BuyWrongMarket)
	}

	taxRate := s.fees.TaxRate(ctx, market)
	var paid, paidTax float64
	status := domain.BuySuccess
	if err := s.scheduler.Run(ctx, func() error {
		if listing.Amount < amount {
			status = domain.BuyOutOfStock
			return nil
		}
		if buyer == listing.Owner {
			// Self-purchase moves no funds.
			return nil
		}
		fee := listing.Price * float64(amount)
		tax := fee * taxRate
		if s.economy.Balance(buyer) < fee+tax {
			status = domain.BuyNotEnoughMoney
			return nil
		}
		if !s.economy.Withdraw(buyer, fee+tax) {
			status = domain.BuyTransactionError
			return nil
		}
		paid = fee + tax
		paidTax = tax
		return nil
	}); err != nil {
		log.Printf("market: buy of listing %d not scheduled: %v", itemID, err)
		return domain.BuyFail(domain.BuyTaskFailed)
	}
	if status != domain.BuySuccess {
		return domain.BuyFail(status)
	}

	ok, err := s.store.DecrementQuantity(ctx, itemID, amount, listing.Price)
	if err != nil || !ok {
		if err != nil {
			log.Printf("market: buy of listing %d failed to commit: %v", itemID, err)
		}
		s.refund(ctx, buyer, paid)
		return domain.BuyFail(domain.BuyCannotBuyItem)
	}

	serr := s.scheduler.Run(ctx, func() error {
		item, derr := s.codec.Deserialize(listing.Payload)
		if derr != nil {
			return fmt.Errorf("deserialize payload: %w", derr)
		}
		delivered := s.codec.Clone(item).WithAmount(amount)
		s.inventory.GiveOrDrop(buyer, delivered)
		s.notifier.UIRefresh(market)
		if !s.economy.DepositVault(paidTax) {
			log.Printf("market: UNRESOLVED settlement: vault deposit of %.2f failed (listing %d, buyer %s)", paidTax, itemID, buyer)
		}
		if !s.economy.Deposit(listing.Owner, paid-paidTax) {
			log.Printf("market: UNRESOLVED settlement: deposit of %.2f to seller %s failed (listing %d, buyer %s)", paid-paidTax, listing.Owner, itemID, buyer)
		}
		s.notifier.Notify(listing.Owner, fmt.Sprintf("sold %s x%d for %.2f", delivered.Name(), amount, listing.Price*float64(amount)))
		log.Printf("market: %s bought listing %d x%d on market %s: paid %.2f (tax %.2f), seller %s received %.2f", buyer, itemID, amount, market, paid, paidTax, listing.Owner, paid-paidTax)
		return nil
	})
	if serr != nil {
		log.Printf("market: UNRESOLVED settlement: delivery for listing %d failed after commit: %v (buyer %s paid %.2f, tax %.2f, seller %s)", itemID, serr, buyer, paid, paidTax, listing.Owner)
		return domain.BuyFail(domain.BuyTaskFailed)
	}
	return domain.BuyOK()
}

// refund returns a phase-1 withdrawal to the buyer, best-effort.
func (s *MarketService) refund(ctx context.Context, buyer uuid.UUID, paid float64) {
	if paid <= 0 {
		return
	}
	if err := s.scheduler.Run(ctx, func() error {
		if !s.economy.Deposit(buyer, paid) {
			return fmt.Errorf("deposit declined")
		}
		return nil
	}); err != nil {
		log.Printf("market: refund of %.2f to %s failed: %v", paid, buyer, err)
	}
}

// Listings returns a market's live listings; sold-out rows are excluded and
// reaped by the store.
func (s *MarketService) Listings(ctx context.Context, market uuid.UUID) ([]domain.Listing, error) {
	return s.store.List(ctx, market)
}
