package domain

// OfferStatus is the terminal status of an offer transaction.
type OfferStatus int

const (
	OfferSuccess OfferStatus = iota
	OfferNotEnoughItems
	OfferNotEnoughMoney
	OfferNotEnoughSpace
	OfferInvalidPrice
	OfferTaskFailed
	OfferDatabaseError
)

func (s OfferStatus) String() string {
	switch s {
	case OfferSuccess:
		return "success"
	case OfferNotEnoughItems:
		return "not enough items"
	case OfferNotEnoughMoney:
		return "not enough money"
	case OfferNotEnoughSpace:
		return "not enough space"
	case OfferInvalidPrice:
		return "invalid price"
	case OfferTaskFailed:
		return "task failed"
	case OfferDatabaseError:
		return "database error"
	}
	return "unknown"
}

// OfferResult carries the offer status plus, on success, the new listing id.
type OfferResult struct {
	Status OfferStatus
	ItemID int64
}

func OfferOK(itemID int64) OfferResult {
	return OfferResult{Status: OfferSuccess, ItemID: itemID}
}

func OfferFail(status OfferStatus) OfferResult {
	return OfferResult{Status: status}
}

func (r OfferResult) IsSuccess() bool {
	return r.Status == OfferSuccess
}

// BuyStatus is the terminal status of a buy transaction.
type BuyStatus int

const (
	BuySuccess BuyStatus = iota
	BuyOutOfStock
	BuyNotEnoughMoney
	BuyItemNotFound
	BuyWrongMarket
	BuyTransactionError
	BuyCannotBuyItem
	BuyTaskFailed
)

func (s BuyStatus) String() string {
	switch s {
	case BuySuccess:
		return "success"
	case BuyOutOfStock:
		return "out of stock"
	case BuyNotEnoughMoney:
		return "not enough money"
	case BuyItemNotFound:
		return "item not found"
	case BuyWrongMarket:
		return "wrong market"
	case BuyTransactionError:
		return "transaction error"
	case BuyCannotBuyItem:
		return "cannot buy item"
	case BuyTaskFailed:
		return "task failed"
	}
	return "unknown"
}

// BuyResult is the terminal result of a buy transaction.
type BuyResult struct {
	Status BuyStatus
}

func BuyOK() BuyResult {
	return BuyResult{Status: BuySuccess}
}

func BuyFail(status BuyStatus) BuyResult {
	return BuyResult{Status: status}
}

func (r BuyResult) IsSuccess() bool {
	return r.Status == BuySuccess
}
