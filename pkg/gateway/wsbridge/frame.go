package wsbridge

import (
	"strconv"

	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/reqid"
	"github.com/peter-kozarec/ibridge/pkg/utility/fixed"
	"google.golang.org/protobuf/types/known/structpb"
)

// frame reads typed fields out of a decoded callback. Missing fields read as zero values.
type frame struct {
	fields map[string]*structpb.Value
}

func newFrame(s *structpb.Struct) frame {
	return frame{fields: s.GetFields()}
}

func (f frame) has(key string) bool {
	_, ok := f.fields[key]
	return ok
}

func (f frame) str(key string) string {
	v := f.fields[key]
	switch v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(v.GetNumberValue(), 'f', -1, 64)
	}
	return v.GetStringValue()
}

func (f frame) num(key string) float64 {
	v := f.fields[key]
	switch v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return v.GetNumberValue()
	case *structpb.Value_StringValue:
		n, _ := strconv.ParseFloat(v.GetStringValue(), 64)
		return n
	}
	return 0
}

func (f frame) int(key string) int64 {
	return int64(f.num(key))
}

func (f frame) bool(key string) bool {
	return f.fields[key].GetBoolValue()
}

// point reads a decimal sent either as a string or a number. Absent values are unset.
func (f frame) point(key string) fixed.Point {
	v := f.fields[key]
	switch v.GetKind().(type) {
	case *structpb.Value_StringValue:
		p, err := fixed.Parse(v.GetStringValue())
		if err != nil {
			return fixed.Unset
		}
		return p
	case *structpb.Value_NumberValue:
		return fixed.FromFloat64(v.GetNumberValue())
	}
	return fixed.Unset
}

func (f frame) reqId() reqid.Id {
	if !f.has("reqId") {
		return reqid.None
	}
	return reqid.Id(f.int("reqId"))
}

func (f frame) sub(key string) frame {
	return frame{fields: f.fields[key].GetStructValue().GetFields()}
}

func (f frame) list(key string) []frame {
	values := f.fields[key].GetListValue().GetValues()
	out := make([]frame, 0, len(values))
	for _, v := range values {
		out = append(out, frame{fields: v.GetStructValue().GetFields()})
	}
	return out
}

func (f frame) strings(key string) []string {
	values := f.fields[key].GetListValue().GetValues()
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.GetStringValue())
	}
	return out
}

func (f frame) floats(key string) []float64 {
	values := f.fields[key].GetListValue().GetValues()
	out := make([]float64, 0, len(values))
	for _, v := range values {
		out = append(out, v.GetNumberValue())
	}
	return out
}

func (f frame) contract(key string) model.Contract {
	c := f.sub(key)
	return model.Contract{
		ConId:                        c.int("conId"),
		Symbol:                       c.str("symbol"),
		SecType:                      c.str("secType"),
		LastTradeDateOrContractMonth: c.str("lastTradeDateOrContractMonth"),
		Strike:                       c.num("strike"),
		Right:                        c.str("right"),
		Multiplier:                   c.str("multiplier"),
		Exchange:                     c.str("exchange"),
		PrimaryExchange:              c.str("primaryExchange"),
		Currency:                     c.str("currency"),
		LocalSymbol:                  c.str("localSymbol"),
		TradingClass:                 c.str("tradingClass"),
	}
}

func (f frame) contractDetails(key string) model.ContractDetails {
	d := f.sub(key)
	return model.ContractDetails{
		Contract:       d.contract("contract"),
		MarketName:     d.str("marketName"),
		MinTick:        d.num("minTick"),
		LongName:       d.str("longName"),
		OrderTypes:     d.str("orderTypes"),
		ValidExchanges: d.str("validExchanges"),
		UnderConId:     d.int("underConId"),
		TimeZoneId:     d.str("timeZoneId"),
		TradingHours:   d.str("tradingHours"),
		LiquidHours:    d.str("liquidHours"),
	}
}

func (f frame) bar(key string) model.Bar {
	b := f.sub(key)
	return model.Bar{
		Date:     b.str("date"),
		Open:     b.num("open"),
		High:     b.num("high"),
		Low:      b.num("low"),
		Close:    b.num("close"),
		Volume:   b.point("volume"),
		WAP:      b.point("wap"),
		BarCount: b.int("barCount"),
	}
}

func (f frame) order(key string) model.Order {
	o := f.sub(key)
	return model.Order{
		OrderId:       o.int("orderId"),
		ClientId:      o.int("clientId"),
		PermId:        o.int("permId"),
		ParentId:      o.int("parentId"),
		Action:        o.str("action"),
		TotalQuantity: o.point("totalQuantity"),
		OrderType:     o.str("orderType"),
		LmtPrice:      o.num("lmtPrice"),
		AuxPrice:      o.num("auxPrice"),
		Tif:           o.str("tif"),
		Account:       o.str("account"),
		OrderRef:      o.str("orderRef"),
		OutsideRth:    o.bool("outsideRth"),
		Transmit:      o.bool("transmit"),
	}
}

func (f frame) execution(key string) model.Execution {
	e := f.sub(key)
	return model.Execution{
		ExecId:   e.str("execId"),
		OrderId:  e.int("orderId"),
		ClientId: e.int("clientId"),
		PermId:   e.int("permId"),
		Time:     e.str("time"),
		Account:  e.str("acctNumber"),
		Exchange: e.str("exchange"),
		Side:     e.str("side"),
		Shares:   e.point("shares"),
		Price:    e.num("price"),
		CumQty:   e.point("cumQty"),
		AvgPrice: e.num("avgPrice"),
		OrderRef: e.str("orderRef"),
	}
}

func contractValue(c model.Contract) map[string]any {
	return map[string]any{
		"conId":                        c.ConId,
		"symbol":                       c.Symbol,
		"secType":                      c.SecType,
		"lastTradeDateOrContractMonth": c.LastTradeDateOrContractMonth,
		"strike":                       c.Strike,
		"right":                        c.Right,
		"multiplier":                   c.Multiplier,
		"exchange":                     c.Exchange,
		"primaryExchange":              c.PrimaryExchange,
		"currency":                     c.Currency,
		"localSymbol":                  c.LocalSymbol,
		"tradingClass":                 c.TradingClass,
	}
}

func orderValue(o model.Order) map[string]any {
	return map[string]any{
		"orderId":       o.OrderId,
		"clientId":      o.ClientId,
		"permId":        o.PermId,
		"parentId":      o.ParentId,
		"action":        o.Action,
		"totalQuantity": o.TotalQuantity.String(),
		"orderType":     o.OrderType,
		"lmtPrice":      o.LmtPrice,
		"auxPrice":      o.AuxPrice,
		"tif":           o.Tif,
		"account":       o.Account,
		"orderRef":      o.OrderRef,
		"outsideRth":    o.OutsideRth,
		"transmit":      o.Transmit,
	}
}
