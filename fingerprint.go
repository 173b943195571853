package main

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DeviceFingerprintService obtains the device_fp the passport anti-abuse layer requires.
// One fingerprint per login attempt; nothing is cached.
type DeviceFingerprintService struct {
	client *VendorClient
	now    func() time.Time
}

func NewDeviceFingerprintService(client *VendorClient) *DeviceFingerprintService {
	return &DeviceFingerprintService{client: client, now: time.Now}
}

type deviceFPResponse struct {
	DeviceFP string `json:"device_fp"`
	Code     int    `json:"code"`
	Msg      string `json:"msg"`
}

// Obtain registers a synthetic web device for deviceID and returns its fingerprint.
func (d *DeviceFingerprintService) Obtain(ctx context.Context, deviceID string, region Region) (string, error) {
	ep := endpointsFor(region)

	extFields, err := json.Marshal(map[string]string{"userAgent": desktopUserAgent})
	if err != nil {
		return "", err
	}

	payload := map[string]string{
		"device_id":  deviceID,
		"seed_id":    uuid.New().String(),
		"seed_time":  strconv.FormatInt(d.now().UnixMilli(), 10),
		"platform":   "4", // web
		"device_fp":  randomString(13),
		"app_name":   ep.FPAppName,
		"ext_fields": string(extFields),
	}

	res, err := d.client.postJSON(ctx, ep.DeviceFP, nil, payload)
	if err != nil {
		if ve, ok := AsVendorError(err); ok {
			return "", &FingerprintError{Retcode: ve.Retcode, Message: ve.Message}
		}
		return "", err
	}

	data, err := decodeData[deviceFPResponse](res)
	if err != nil {
		return "", err
	}
	if data.DeviceFP == "" {
		return "", &FingerprintError{Retcode: data.Code, Message: "empty device_fp in response"}
	}
	return data.DeviceFP, nil
}
