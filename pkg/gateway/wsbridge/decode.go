package wsbridge

import (
	"errors"
	"fmt"

	"github.com/peter-kozarec/ibridge/pkg/bus"
	"github.com/peter-kozarec/ibridge/pkg/model"
	"github.com/peter-kozarec/ibridge/pkg/reqid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var ErrUnknownKind = errors.New("unknown callback kind")

type decoder func(f frame) bus.Event

var decoders = map[bus.Kind]decoder{
	bus.TickPriceKind: func(f frame) bus.Event {
		attrib := f.sub("attrib")
		return bus.TickPrice{
			ReqId: f.reqId(),
			Field: model.TickType(f.int("field")),
			Price: f.num("price"),
			Attrib: model.TickAttrib{
				CanAutoExecute: attrib.bool("canAutoExecute"),
				PastLimit:      attrib.bool("pastLimit"),
				PreOpen:        attrib.bool("preOpen"),
			},
		}
	},
	bus.TickSizeKind: func(f frame) bus.Event {
		return bus.TickSize{ReqId: f.reqId(), Field: model.TickType(f.int("field")), Size: f.point("size")}
	},
	bus.TickStringKind: func(f frame) bus.Event {
		return bus.TickString{ReqId: f.reqId(), Field: model.TickType(f.int("field")), Value: f.str("value")}
	},
	bus.TickGenericKind: func(f frame) bus.Event {
		return bus.TickGeneric{ReqId: f.reqId(), Field: model.TickType(f.int("field")), Value: f.num("value")}
	},
	bus.TickOptionComputationKind: func(f frame) bus.Event {
		return bus.TickOptionComputation{
			ReqId: f.reqId(),
			Field: model.TickType(f.int("field")),
			Computation: model.OptionComputation{
				TickAttrib: int(f.int("tickAttrib")),
				ImpliedVol: f.num("impliedVol"),
				Delta:      f.num("delta"),
				OptPrice:   f.num("optPrice"),
				PvDividend: f.num("pvDividend"),
				Gamma:      f.num("gamma"),
				Vega:       f.num("vega"),
				Theta:      f.num("theta"),
				UndPrice:   f.num("undPrice"),
			},
		}
	},
	bus.TickSnapshotEndKind: func(f frame) bus.Event {
		return bus.TickSnapshotEnd{ReqId: f.reqId()}
	},
	bus.HistoricalDataKind: func(f frame) bus.Event {
		return bus.HistoricalData{ReqId: f.reqId(), Bar: f.bar("bar")}
	},
	bus.HistoricalDataEndKind: func(f frame) bus.Event {
		return bus.HistoricalDataEnd{ReqId: f.reqId(), Start: f.str("start"), End: f.str("end")}
	},
	bus.HistoricalDataUpdateKind: func(f frame) bus.Event {
		return bus.HistoricalDataUpdate{ReqId: f.reqId(), Bar: f.bar("bar")}
	},
	bus.RealTimeBarKind: func(f frame) bus.Event {
		return bus.RealTimeBar{ReqId: f.reqId(), Bar: f.bar("bar")}
	},
	bus.TickByTickLastKind: func(f frame) bus.Event {
		return bus.TickByTickLast{ReqId: f.reqId(), Tick: model.TradeTick{
			Time:              f.int("time"),
			Price:             f.num("price"),
			Size:              f.point("size"),
			PastLimit:         f.bool("pastLimit"),
			Unreported:        f.bool("unreported"),
			Exchange:          f.str("exchange"),
			SpecialConditions: f.str("specialConditions"),
		}}
	},
	bus.TickByTickBidAskKind: func(f frame) bus.Event {
		return bus.TickByTickBidAsk{ReqId: f.reqId(), Tick: model.QuoteTick{
			Time:        f.int("time"),
			BidPrice:    f.num("bidPrice"),
			AskPrice:    f.num("askPrice"),
			BidSize:     f.point("bidSize"),
			AskSize:     f.point("askSize"),
			BidPastLow:  f.bool("bidPastLow"),
			AskPastHigh: f.bool("askPastHigh"),
		}}
	},
	bus.TickByTickMidKind: func(f frame) bus.Event {
		return bus.TickByTickMid{ReqId: f.reqId(), Tick: model.MidTick{Time: f.int("time"), MidPoint: f.num("midPoint")}}
	},
	bus.HistoricalTicksKind: func(f frame) bus.Event {
		var ticks []model.HistoricalTick
		for _, t := range f.list("ticks") {
			ticks = append(ticks, model.HistoricalTick{
				Time:              t.int("time"),
				Price:             t.num("price"),
				Size:              t.point("size"),
				BidPrice:          t.num("bidPrice"),
				AskPrice:          t.num("askPrice"),
				BidSize:           t.point("bidSize"),
				AskSize:           t.point("askSize"),
				Exchange:          t.str("exchange"),
				SpecialConditions: t.str("specialConditions"),
			})
		}
		return bus.HistoricalTicks{ReqId: f.reqId(), Ticks: ticks, Done: f.bool("done")}
	},
	bus.HistoricalTicksEndKind: func(f frame) bus.Event {
		return bus.HistoricalTicksEnd{ReqId: f.reqId()}
	},
	bus.ContractDetailsKind: func(f frame) bus.Event {
		return bus.ContractDetails{ReqId: f.reqId(), Details: f.contractDetails("details")}
	},
	bus.ContractDetailsEndKind: func(f frame) bus.Event {
		return bus.ContractDetailsEnd{ReqId: f.reqId()}
	},
	bus.PositionKind: func(f frame) bus.Event {
		return bus.Position{Position: model.Position{
			Account:  f.str("account"),
			Contract: f.contract("contract"),
			Size:     f.point("position"),
			AvgCost:  f.num("avgCost"),
		}}
	},
	bus.PositionEndKind: func(f frame) bus.Event {
		return bus.PositionEnd{}
	},
	bus.OpenOrderKind: func(f frame) bus.Event {
		state := f.sub("orderState")
		return bus.OpenOrder{
			ReqId:    reqid.Id(f.int("orderId")),
			Contract: f.contract("contract"),
			Order:    f.order("order"),
			State: model.OrderState{
				Status:             model.OrderStatus(state.str("status")),
				Commission:         state.num("commission"),
				CommissionCurrency: state.str("commissionCurrency"),
				WarningText:        state.str("warningText"),
			},
		}
	},
	bus.OrderStatusKind: func(f frame) bus.Event {
		return bus.OrderStatus{
			ReqId: reqid.Id(f.int("orderId")),
			Status: model.OrderStatusReport{
				OrderId:       f.int("orderId"),
				Status:        model.OrderStatus(f.str("status")),
				Filled:        f.point("filled"),
				Remaining:     f.point("remaining"),
				AvgFillPrice:  f.num("avgFillPrice"),
				PermId:        f.int("permId"),
				ParentId:      f.int("parentId"),
				LastFillPrice: f.num("lastFillPrice"),
				ClientId:      f.int("clientId"),
				WhyHeld:       f.str("whyHeld"),
				MktCapPrice:   f.num("mktCapPrice"),
			},
		}
	},
	bus.ExecDetailsKind: func(f frame) bus.Event {
		return bus.ExecDetails{ReqId: f.reqId(), Contract: f.contract("contract"), Execution: f.execution("execution")}
	},
	bus.ExecDetailsEndKind: func(f frame) bus.Event {
		return bus.ExecDetailsEnd{ReqId: f.reqId()}
	},
	bus.CommissionReportKind: func(f frame) bus.Event {
		return bus.CommissionReport{Report: model.CommissionReport{
			ExecId:              f.str("execId"),
			Commission:          f.num("commission"),
			Currency:            f.str("currency"),
			RealizedPNL:         f.num("realizedPNL"),
			Yield:               f.num("yield"),
			YieldRedemptionDate: f.int("yieldRedemptionDate"),
		}}
	},
	bus.AccountValueKind: func(f frame) bus.Event {
		return bus.AccountValue{Value: model.AccountValue{
			Account:  f.str("accountName"),
			Key:      f.str("key"),
			Value:    f.str("value"),
			Currency: f.str("currency"),
		}}
	},
	bus.PortfolioValueKind: func(f frame) bus.Event {
		return bus.PortfolioValue{Item: model.PortfolioItem{
			Account:       f.str("accountName"),
			Contract:      f.contract("contract"),
			Position:      f.point("position"),
			MarketPrice:   f.num("marketPrice"),
			MarketValue:   f.num("marketValue"),
			AverageCost:   f.num("averageCost"),
			UnrealizedPNL: f.num("unrealizedPNL"),
			RealizedPNL:   f.num("realizedPNL"),
		}}
	},
	bus.AccountDownloadEndKind: func(f frame) bus.Event {
		return bus.AccountDownloadEnd{Account: f.str("accountName")}
	},
	bus.ScannerDataKind: func(f frame) bus.Event {
		return bus.ScannerData{ReqId: f.reqId(), Data: model.ScanData{
			Rank:       int(f.int("rank")),
			Details:    f.contractDetails("details"),
			Distance:   f.str("distance"),
			Benchmark:  f.str("benchmark"),
			Projection: f.str("projection"),
			LegsStr:    f.str("legsStr"),
		}}
	},
	bus.ScannerDataEndKind: func(f frame) bus.Event {
		return bus.ScannerDataEnd{ReqId: f.reqId()}
	},
	bus.SecDefOptParamsKind: func(f frame) bus.Event {
		return bus.SecDefOptParams{ReqId: f.reqId(), Chain: model.OptionChain{
			Exchange:        f.str("exchange"),
			UnderlyingConId: f.int("underlyingConId"),
			TradingClass:    f.str("tradingClass"),
			Multiplier:      f.str("multiplier"),
			Expirations:     f.strings("expirations"),
			Strikes:         f.floats("strikes"),
		}}
	},
	bus.SecDefOptParamsEndKind: func(f frame) bus.Event {
		return bus.SecDefOptParamsEnd{ReqId: f.reqId()}
	},
	bus.ErrorKind: func(f frame) bus.Event {
		return bus.Error{ReqId: f.reqId(), Code: int(f.int("errorCode")), Message: f.str("errorString")}
	},
	bus.NextValidIdKind: func(f frame) bus.Event {
		return bus.NextValidId{OrderId: reqid.Id(f.int("orderId"))}
	},
	bus.ManagedAccountsKind: func(f frame) bus.Event {
		return bus.ManagedAccounts{Accounts: f.strings("accounts")}
	},
	bus.ConnectionClosedKind: func(f frame) bus.Event {
		return bus.ConnectionClosed{Reason: errors.New(f.str("reason"))}
	},
}

// Decode turns one binary frame into a bus event.
func Decode(data []byte) (bus.Event, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unable to unmarshal frame: %w", err)
	}

	f := newFrame(&s)
	name := f.str("kind")
	kind, ok := bus.ParseKind(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	decode, ok := decoders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	return decode(f), nil
}

// Encode builds a binary frame from plain values, as accepted by structpb.NewStruct.
func Encode(fields map[string]any) ([]byte, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("unable to build frame: %w", err)
	}
	return proto.Marshal(s)
}
