package auctionerrors

import "errors"

// Store-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrAuctionExists   = errors.New("auction already exists")
	ErrInvalidState    = errors.New("invalid auction state transition")
)

// business logic errors
var (
	ErrInvalidBid          = errors.New("invalid bid")
	ErrBidTooLow           = errors.New("bid amount too low")
	ErrAuctionClosed       = errors.New("auction is not open for bidding")
	ErrProxyCeilingInvalid = errors.New("proxy ceiling below required minimum")
	ErrProxyNotFound       = errors.New("no proxy configuration for bidder")
)
