package symbols

import "testing"

func TestToCanonical(t *testing.T) {
	tests := []struct {
		exchange string
		in       string
		want     string
	}{
		{"kucoin", "XBT-USDTM", "BTCUSDT"},
		{"kucoin", "ETHUSDTM", "ETHUSDT"},
		{"binance", "ETHUSDT", "ETHUSDT"},
		{"binance", "1000BONKUSDT", "BONKUSDT"},
		{"binance", "1000PEPEUSDT", "PEPEUSDT"},
		{"binance", "1000SHIBUSDT", "SHIBUSDT"},
		{"bybit", "SHIB1000USDT", "SHIBUSDT"},
		{"bybit", "1000BONKUSDT", "BONKUSDT"},
		{"bybit", "1000PEPEUSDT", "PEPEUSDT"},
	}
	for _, tt := range tests {
		if got := ToCanonical(tt.exchange, tt.in); got != tt.want {
			t.Errorf("ToCanonical(%s,%s)=%s want %s", tt.exchange, tt.in, got, tt.want)
		}
	}
}

func TestToKucoinFutures(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"BTCUSDT", "XBTUSDTM"},
		{"ETHUSDT", "ETHUSDTM"},
		{"eth-usdt", "ETHUSDTM"},
	}
	for _, tt := range tests {
		if got := ToKucoinFutures(tt.in); got != tt.want {
			t.Errorf("ToKucoinFutures(%s)=%s want %s", tt.in, got, tt.want)
		}
	}
}

func TestKucoinRoundTrip(t *testing.T) {
	for _, sym := range []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"} {
		if got := NormalizeKucoinFutures(ToKucoinFutures(sym)); got != sym {
			t.Errorf("round trip %s -> %s", sym, got)
		}
	}
}
