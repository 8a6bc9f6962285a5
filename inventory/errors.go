package inventory

import "github.com/kyrhanu/ledger/apperr"

var (
	ErrInvalidItemCode  = apperr.New(apperr.Validation, "INVALID_ITEM_CODE")
	ErrInvalidQuantity  = apperr.New(apperr.Validation, "INVALID_QUANTITY")
	ErrInvalidSlot      = apperr.New(apperr.Validation, "INVALID_SLOT")
	ErrNoSlot           = apperr.New(apperr.Validation, "ITEM_HAS_NO_SLOT")
	ErrItemNotFound     = apperr.New(apperr.NotFound, "ITEM_NOT_FOUND")
	ErrPlayerNotFound   = apperr.New(apperr.NotFound, "PLAYER_NOT_FOUND")
	ErrCannotEquipStack = apperr.New(apperr.Conflict, "CANNOT_EQUIP_STACK")
	ErrSlotBusy         = apperr.New(apperr.Conflict, "SLOT_BUSY")
	ErrItemNotUsable    = apperr.New(apperr.Conflict, "ITEM_NOT_USABLE")
	ErrNotEnoughQty     = apperr.New(apperr.Conflict, "NOT_ENOUGH_QTY")
)
