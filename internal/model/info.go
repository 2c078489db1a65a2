package model

import "github.com/matheus3301/wppweb/internal/wid"

// MessageInfo reports the delivery state of a message the account sent.
type MessageInfo struct {
	Delivery          []Receipt `json:"delivery"`
	DeliveryRemaining int       `json:"deliveryRemaining"`
	Played            []Receipt `json:"played"`
	PlayedRemaining   int       `json:"playedRemaining"`
	Read              []Receipt `json:"read"`
	ReadRemaining     int       `json:"readRemaining"`
}

// Receipt is one recipient's acknowledgement and its time in unix seconds.
type Receipt struct {
	ID wid.ID `json:"id"`
	T  int64  `json:"t"`
}
