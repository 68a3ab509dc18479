package chart

// Endpoint paths and transaction ids.
const (
	pathTimeDailyChart = "/uapi/domestic-stock/v1/quotations/inquire-time-dailychartprice"
	pathTimeItemChart  = "/uapi/domestic-stock/v1/quotations/inquire-time-itemchartprice"
	pathDailyItemChart = "/uapi/domestic-stock/v1/quotations/inquire-daily-itemchartprice"

	trTimeDailyChart = "FHKST03010230"
	trTimeItemChart  = "FHKST03010200"
	trDailyItemChart = "FHKST03010100"
)

// Page sizes the API enforces per call.
const (
	fullDayPageSize = 120
	latestPageSize  = 30
)

// chartResponse is the common response envelope.
type chartResponse struct {
	RtCd    string     `json:"rt_cd"`
	MsgCd   string     `json:"msg_cd"`
	Msg1    string     `json:"msg1"`
	Output2 []chartRow `json:"output2"`
}

// chartRow is one minute candle as delivered on the wire.
type chartRow struct {
	BsopDate   string `json:"stck_bsop_date"` // trading day YYYYMMDD
	CntgHour   string `json:"stck_cntg_hour"` // bar minute HHMMSS
	Oprc       string `json:"stck_oprc"`
	Hgpr       string `json:"stck_hgpr"`
	Lwpr       string `json:"stck_lwpr"`
	Prpr       string `json:"stck_prpr"` // close
	CntgVol    string `json:"cntg_vol"`
	AcmlTrPbmn string `json:"acml_tr_pbmn"` // cumulative traded value
}

// dailyResponse is the daily-candle response envelope.
type dailyResponse struct {
	RtCd    string     `json:"rt_cd"`
	MsgCd   string     `json:"msg_cd"`
	Msg1    string     `json:"msg1"`
	Output2 []dailyRow `json:"output2"`
}

// dailyRow is one daily candle as delivered on the wire.
type dailyRow struct {
	BsopDate   string `json:"stck_bsop_date"`
	Oprc       string `json:"stck_oprc"`
	Hgpr       string `json:"stck_hgpr"`
	Lwpr       string `json:"stck_lwpr"`
	Clpr       string `json:"stck_clpr"`
	AcmlVol    string `json:"acml_vol"`
	AcmlTrPbmn string `json:"acml_tr_pbmn"`
}
