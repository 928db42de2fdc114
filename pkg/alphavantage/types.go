package alphavantage

// notice carries the fields Alpha Vantage uses instead of an HTTP error.
type notice struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

type globalQuoteResponse struct {
	notice
	Quote rawQuote `json:"Global Quote"`
}

type rawQuote struct {
	Symbol           string `json:"01. symbol"`
	Open             string `json:"02. open"`
	High             string `json:"03. high"`
	Low              string `json:"04. low"`
	Price            string `json:"05. price"`
	Volume           string `json:"06. volume"`
	LatestTradingDay string `json:"07. latest trading day"`
	PreviousClose    string `json:"08. previous close"`
	Change           string `json:"09. change"`
	ChangePercent    string `json:"10. change percent"`
}

type rawBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// Quote is a parsed GLOBAL_QUOTE.
type Quote struct {
	Symbol           string
	Open             float64
	High             float64
	Low              float64
	Price            float64
	Volume           int64
	LatestTradingDay string
	PreviousClose    float64
	Change           float64
	ChangePercent    string // "%" stripped
}

// Bar is one row of a time series.
type Bar struct {
	Time   string // "2024-05-01" or "2024-05-01 15:55:00"
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}
