package constant

const (
	DevelopmentEnvironment = "development"
	ProductionEnvironment  = "production"
)

const (
	ActionGetPrice = "getPrice"
)

const (
	TickerStreamName       = "ticker"
	TickerStreamSubjectAll = "ticker.*"

	TickerCacheKeyPrefix = "ticker:"

	UpstreamHealthService = "price-relay.upstream"
)

func GetTickerStreamSubject(symbol string) string {
	return TickerStreamName + "." + symbol
}

func GetTickerCacheKey(symbol string) string {
	return TickerCacheKeyPrefix + symbol
}
