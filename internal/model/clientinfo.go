package model

import (
	"encoding/json"

	"github.com/matheus3301/wppweb/internal/errs"
	"github.com/matheus3301/wppweb/internal/wid"
)

// ClientInfo describes the connected account and phone.
type ClientInfo struct {
	PushName string
	WID      wid.ID
	Phone    PhoneInfo
	Platform string
}

// PhoneInfo describes the phone the session is paired with.
type PhoneInfo struct {
	WAVersion          string `json:"wa_version"`
	OSVersion          string `json:"os_version"`
	DeviceManufacturer string `json:"device_manufacturer"`
	DeviceModel        string `json:"device_model"`
	OSBuildNumber      string `json:"os_build_number"`
}

// BatteryStatus is the battery state of the paired phone.
type BatteryStatus struct {
	Battery int  `json:"battery"`
	Plugged bool `json:"plugged"`
}

// NewClientInfo builds a ClientInfo from a raw payload.
func NewClientInfo(raw json.RawMessage) (ClientInfo, error) {
	f, err := parseFields("client info", raw)
	if err != nil {
		return ClientInfo{}, err
	}
	r := newReader(f)
	info := ClientInfo{
		PushName: r.str("pushname"),
		WID:      r.id("wid"),
		Platform: r.str("platform"),
	}
	r.decode("phone", &info.Phone)
	if info.WID.IsZero() {
		return ClientInfo{}, errs.Malformed("client info", "wid")
	}
	return info, nil
}
