// Package symbols maps between the canonical symbol format used in reference
// price lookups (uppercase, no separators, BTC not XBT) and the formats the
// individual exchanges expect.
package symbols

import "strings"

// ToCanonical converts exchange-specific symbol formats to the canonical
// style. Currently supported exchanges: binance, bybit, kucoin.
func ToCanonical(exchange, sym string) string {
	switch strings.ToLower(exchange) {
	case "binance":
		switch sym {
		case "1000BONKUSDT":
			sym = "BONKUSDT"
		case "1000PEPEUSDT":
			sym = "PEPEUSDT"
		case "1000SHIBUSDT":
			sym = "SHIBUSDT"
		}
	case "bybit":
		switch sym {
		case "1000BONKUSDT":
			sym = "BONKUSDT"
		case "1000PEPEUSDT":
			sym = "PEPEUSDT"
		case "SHIB1000USDT":
			sym = "SHIBUSDT"
		}
	case "kucoin":
		sym = NormalizeKucoinFutures(sym)
	default:
		// others already use the desired format
	}
	return strings.ToUpper(sym)
}

// NormalizeKucoinFutures converts KuCoin futures contract names to the
// canonical format. Examples:
//
//	XBTUSDTM -> BTCUSDT
//	ETH-USDTM -> ETHUSDT
func NormalizeKucoinFutures(sym string) string {
	sym = strings.ReplaceAll(sym, "-", "")
	sym = strings.TrimSuffix(sym, "M")
	if strings.HasPrefix(sym, "XBT") {
		sym = "BTC" + sym[3:]
	}
	return sym
}

// ToKucoinFutures converts a canonical symbol to the KuCoin futures contract
// name. Examples:
//
//	BTCUSDT -> XBTUSDTM
//	ETHUSDT -> ETHUSDTM
func ToKucoinFutures(sym string) string {
	sym = strings.ToUpper(strings.ReplaceAll(sym, "-", ""))
	if strings.HasPrefix(sym, "BTC") {
		sym = "XBT" + sym[3:]
	}
	if !strings.HasSuffix(sym, "M") {
		sym += "M"
	}
	return sym
}
