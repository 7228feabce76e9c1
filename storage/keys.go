package storage

import "encoding/hex"

var (
	prefsMinPricePrefix  = []byte("prefs/minprice/")
	prefsRecipientPrefix = []byte("prefs/recipient/")
	feesRateKey          = []byte("fees/rate")
)

func prefsMinPriceKey(account [20]byte, token string) []byte {
	addr := hex.EncodeToString(account[:])
	buf := make([]byte, 0, len(prefsMinPricePrefix)+len(addr)+1+len(token))
	buf = append(buf, prefsMinPricePrefix...)
	buf = append(buf, addr...)
	buf = append(buf, '/')
	buf = append(buf, token...)
	return buf
}

func prefsRecipientKey(account [20]byte) []byte {
	addr := hex.EncodeToString(account[:])
	buf := make([]byte, 0, len(prefsRecipientPrefix)+len(addr))
	buf = append(buf, prefsRecipientPrefix...)
	buf = append(buf, addr...)
	return buf
}
