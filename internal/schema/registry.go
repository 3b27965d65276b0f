package schema

// Kind tags a batch of records with the entity it represents. The kind
// selects which canonical column registry and type rules apply.
type Kind string

const (
	KindMarket       Kind = "market"
	KindOrder        Kind = "order"
	KindTrade        Kind = "trade"
	KindBalance      Kind = "balance"
	KindCandle       Kind = "candle"
	KindFundingRate  Kind = "funding_rate"
	KindTicker       Kind = "ticker"
	KindTransfer     Kind = "transfer"
	KindAccount      Kind = "account"
	KindGreek        Kind = "greek"
	KindBorrowRate   Kind = "borrow_rate"
	KindOrderBook    Kind = "orderbook"
	KindPosition     Kind = "position"
	KindPriceHistory Kind = "price_history"
	KindEvent        Kind = "event"
	KindTag          Kind = "tag"
	KindSeries       Kind = "series"
)

// Class is the semantic type assigned to a canonical column.
type Class int

const (
	Unknown Class = iota
	Numeric
	Boolean
	DateTime
	Identifier
	Nested
	Dropped
)

func (c Class) String() string {
	switch c {
	case Numeric:
		return "numeric"
	case Boolean:
		return "boolean"
	case DateTime:
		return "datetime"
	case Identifier:
		return "identifier"
	case Nested:
		return "nested"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// RegistryVersion identifies the column registry revision in effect.
const RegistryVersion = 3

// Field is one canonical column declaration.
type Field struct {
	Name  string
	Class Class
}

// registry is an ordered canonical column set for one entity kind.
// Order matters: Table construction emits registry columns first, in this
// order, before any pass-through columns.
type registry struct {
	fields []Field
	index  map[string]Class
}

func newRegistry(fields []Field) *registry {
	r := &registry{fields: fields, index: make(map[string]Class, len(fields))}
	for _, f := range fields {
		r.index[f.Name] = f.Class
	}
	return r
}

// shared columns appearing across most entity payloads.
var sharedFields = []Field{
	{"id", Identifier},
	{"slug", Identifier},
	{"symbol", Identifier},
	{"market", Identifier},
	{"assetId", Identifier},
	{"tokenId", Identifier},
	{"conditionId", Identifier},
	{"timestamp", DateTime},
	{"createdAt", DateTime},
	{"updatedAt", DateTime},
	{"startDate", DateTime},
	{"endDate", DateTime},
	{"price", Numeric},
	{"size", Numeric},
	{"amount", Numeric},
	{"side", Unknown},
	{"active", Boolean},
	{"closed", Boolean},
	{"archived", Boolean},
	{"restricted", Boolean},
	{"icon", Dropped},
	{"image", Dropped},
}

var kindFields = map[Kind][]Field{
	KindMarket: {
		{"question", Unknown},
		{"bestAsk", Numeric},
		{"bestBid", Numeric},
		{"lastTradePrice", Numeric},
		{"spread", Numeric},
		{"liquidity", Numeric},
		{"liquidityNum", Numeric},
		{"liquidityAmm", Numeric},
		{"volume", Numeric},
		{"volumeNum", Numeric},
		{"volume24hr", Numeric},
		{"volume1wk", Numeric},
		{"volume1mo", Numeric},
		{"volume1yr", Numeric},
		{"oneHourPriceChange", Numeric},
		{"oneDayPriceChange", Numeric},
		{"oneWeekPriceChange", Numeric},
		{"oneMonthPriceChange", Numeric},
		{"oneYearPriceChange", Numeric},
		{"lowerBound", Numeric},
		{"upperBound", Numeric},
		{"rewardsMinSize", Numeric},
		{"rewardsMaxSpread", Numeric},
		{"tickSize", Numeric},
		{"minOrderSize", Numeric},
		{"minPrice", Numeric},
		{"maxPrice", Numeric},
		{"minAmount", Numeric},
		{"maxAmount", Numeric},
		{"minCost", Numeric},
		{"maxCost", Numeric},
		{"pricePrecision", Numeric},
		{"amountPrecision", Numeric},
		{"negRisk", Boolean},
		{"negRiskOther", Boolean},
		{"cyom", Boolean},
		{"competitive", Boolean},
		{"approved", Boolean},
		{"funded", Boolean},
		{"ready", Boolean},
		{"readyForCron", Boolean},
		{"hasReviewedDates", Boolean},
		{"fpmmLive", Boolean},
		{"clearBookOnStart", Boolean},
		{"manualActivation", Boolean},
		{"pendingDeployment", Boolean},
		{"deploying", Boolean},
		{"rfqEnabled", Boolean},
		{"feesEnabled", Boolean},
		{"holdingRewardsEnabled", Boolean},
		{"notificationsEnabled", Boolean},
		{"pagerDutyNotificationEnabled", Boolean},
		{"wideFormat", Boolean},
		{"acceptingOrdersTimestamp", DateTime},
		{"closedTime", DateTime},
		{"endDateIso", DateTime},
		{"startDateIso", DateTime},
		{"gameStartTime", DateTime},
		{"umaEndDate", DateTime},
		{"clobTokenIds", Unknown},
	},
	KindOrder: {
		{"orderId", Identifier},
		{"owner", Identifier},
		{"maker", Identifier},
		{"taker", Identifier},
		{"signer", Identifier},
		{"type", Unknown},
		{"status", Unknown},
		{"originalSize", Numeric},
		{"matchedAmount", Numeric},
		{"sizeMatched", Numeric},
		{"makerAmount", Numeric},
		{"takerAmount", Numeric},
		{"feeRateBps", Numeric},
		{"cost", Numeric},
		{"filled", Numeric},
		{"remaining", Numeric},
		{"expiration", DateTime},
		{"fee", Nested},
		{"feeCost", Numeric},
	},
	KindTrade: {
		{"tradeId", Identifier},
		{"orderId", Identifier},
		{"maker", Identifier},
		{"taker", Identifier},
		{"cost", Numeric},
		{"feeRateBps", Numeric},
		{"fee", Nested},
		{"feeCost", Numeric},
		{"matchTime", DateTime},
		{"lastUpdate", DateTime},
		{"takerOnly", Boolean},
	},
	KindBalance: {
		{"currency", Identifier},
		{"free", Numeric},
		{"used", Numeric},
		{"locked", Numeric},
		{"total", Numeric},
	},
	KindCandle: {
		{"open", Numeric},
		{"high", Numeric},
		{"low", Numeric},
		{"close", Numeric},
		{"volume", Numeric},
		{"openTime", DateTime},
		{"closeTime", DateTime},
	},
	KindFundingRate: {
		{"fundingRate", Numeric},
		{"markPrice", Numeric},
		{"indexPrice", Numeric},
		{"interestRate", Numeric},
		{"fundingTime", DateTime},
		{"nextFundingTime", DateTime},
	},
	KindTicker: {
		{"bid", Numeric},
		{"ask", Numeric},
		{"bidSize", Numeric},
		{"askSize", Numeric},
		{"bestBid", Numeric},
		{"bestAsk", Numeric},
		{"last", Numeric},
		{"open", Numeric},
		{"high", Numeric},
		{"low", Numeric},
		{"close", Numeric},
		{"mid", Numeric},
		{"change", Numeric},
		{"percentage", Numeric},
		{"baseVolume", Numeric},
		{"quoteVolume", Numeric},
		{"value", Numeric},
		{"fullAccuracyValue", Numeric},
	},
	KindTransfer: {
		{"txHash", Identifier},
		{"address", Identifier},
		{"currency", Identifier},
		{"status", Unknown},
		{"fee", Nested},
	},
	KindAccount: {
		{"address", Identifier},
		{"user", Identifier},
		{"proxyWallet", Identifier},
		{"balance", Numeric},
		{"equity", Numeric},
		{"margin", Numeric},
		{"leverage", Numeric},
	},
	KindGreek: {
		{"delta", Numeric},
		{"gamma", Numeric},
		{"theta", Numeric},
		{"vega", Numeric},
		{"rho", Numeric},
		{"impliedVolatility", Numeric},
	},
	KindBorrowRate: {
		{"currency", Identifier},
		{"rate", Numeric},
		{"period", Numeric},
	},
	KindOrderBook: {
		{"side", Identifier},
		{"hash", Identifier},
		{"minOrderSize", Numeric},
		{"tickSize", Numeric},
		{"level", Numeric},
		{"negRisk", Boolean},
		{"eventType", Unknown},
	},
	KindPosition: {
		{"user", Identifier},
		{"eventId", Identifier},
		{"avgPrice", Numeric},
		{"initialValue", Numeric},
		{"currentValue", Numeric},
		{"cashPnl", Numeric},
		{"percentPnl", Numeric},
		{"totalBought", Numeric},
		{"realizedPnl", Numeric},
		{"curPrice", Numeric},
		{"redeemable", Boolean},
		{"mergeable", Boolean},
	},
	KindPriceHistory: {
		{"t", DateTime},
		{"p", Numeric},
	},
	KindEvent: {
		{"ticker", Identifier},
		{"title", Unknown},
		{"description", Unknown},
		{"volume", Numeric},
		{"volume24hr", Numeric},
		{"liquidity", Numeric},
		{"openInterest", Numeric},
		{"competitive", Numeric},
		{"commentCount", Numeric},
		{"featured", Boolean},
		{"new", Boolean},
		{"cyom", Boolean},
		{"enableOrderBook", Boolean},
		{"negRisk", Boolean},
		{"creationDate", DateTime},
		{"eventStartTime", DateTime},
	},
	KindTag: {
		{"label", Unknown},
		{"forceShow", Boolean},
		{"forceHide", Boolean},
		{"isCarousel", Boolean},
		{"publishedAt", DateTime},
	},
	KindSeries: {
		{"ticker", Identifier},
		{"title", Unknown},
		{"seriesType", Unknown},
		{"recurrence", Unknown},
		{"volume", Numeric},
		{"liquidity", Numeric},
		{"commentCount", Numeric},
		{"featured", Boolean},
		{"publishedAt", DateTime},
		{"events", Nested},
	},
}

var registries map[Kind]*registry

func init() {
	registries = make(map[Kind]*registry, len(kindFields))
	for kind, extra := range kindFields {
		fields := make([]Field, 0, len(sharedFields)+2*len(extra))
		fields = append(fields, sharedFields...)
		fields = append(fields, extra...)
		// Event-prefixed variants appear when series or market payloads are
		// expanded along their embedded event list.
		for _, f := range extra {
			if f.Class == Nested {
				continue
			}
			fields = append(fields, Field{JoinKeys("event", f.Name), f.Class})
		}
		registries[kind] = newRegistry(fields)
	}
}

// Classify reports the semantic class of a canonical field name under the
// given entity kind. Fields absent from the registry are Unknown and pass
// through the table builder untyped.
func Classify(kind Kind, field string) Class {
	r, ok := registries[kind]
	if !ok {
		return Unknown
	}
	return r.index[field]
}

// Fields returns the ordered canonical column declarations for a kind.
// The returned slice must not be mutated.
func Fields(kind Kind) []Field {
	r, ok := registries[kind]
	if !ok {
		return nil
	}
	return r.fields
}

// Register adds or overrides one canonical column declaration for a kind at
// initialization time. It is not safe for concurrent use with Classify and
// is intended for wiring new entity fields during startup.
func Register(kind Kind, field string, class Class) {
	r, ok := registries[kind]
	if !ok {
		r = newRegistry(nil)
		registries[kind] = r
	}
	if _, exists := r.index[field]; !exists {
		r.fields = append(r.fields, Field{field, class})
	} else {
		for i := range r.fields {
			if r.fields[i].Name == field {
				r.fields[i].Class = class
				break
			}
		}
	}
	r.index[field] = class
}
