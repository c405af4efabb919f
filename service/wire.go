package service

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/auralshin/dfba-sub000/domain/auction"
)

// Log record payloads are hand-encoded protobuf. Field numbers are part
// of the on-disk format and must never be reused for a different
// meaning.

var errBadPayload = errors.New("service: malformed log payload")

// submit: 1=trader 2=market 3=side 4=role 5=tick(zigzag) 6=qty 7=nonce 8=expiry
func encodeSubmit(o auction.Order) []byte {
	b := make([]byte, 0, 64)
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, o.Trader)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, string(o.Market))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(o.Side))
	b = protowire.AppendTag(b, 4, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(o.Role))
	b = protowire.AppendTag(b, 5, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(o.Tick)))
	b = protowire.AppendTag(b, 6, protowire.VarintType)
	b = protowire.AppendVarint(b, o.Qty)
	b = protowire.AppendTag(b, 7, protowire.VarintType)
	b = protowire.AppendVarint(b, o.Nonce)
	b = protowire.AppendTag(b, 8, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(o.Expiry))
	return b
}

func decodeSubmit(data []byte) (auction.Order, error) {
	var o auction.Order
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return o, errBadPayload
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return o, errBadPayload
			}
			o.Trader = v
			data = data[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return o, errBadPayload
			}
			o.Market = auction.MarketID(v)
			data = data[n:]
		case typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return o, errBadPayload
			}
			data = data[n:]
			switch num {
			case 3:
				o.Side = auction.Side(v)
			case 4:
				o.Role = auction.Role(v)
			case 5:
				o.Tick = auction.Tick(protowire.DecodeZigZag(v))
			case 6:
				o.Qty = v
			case 7:
				o.Nonce = v
			case 8:
				o.Expiry = int64(v)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return o, errBadPayload
			}
			data = data[n:]
		}
	}
	return o, nil
}

// cancel and claim records share one shape: 1=order_id 2=trader
func encodeOrderRef(caller string, id auction.OrderID) []byte {
	b := make([]byte, 0, 48)
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, id[:])
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, caller)
	return b
}

func decodeOrderRef(data []byte) (caller string, id auction.OrderID, err error) {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", id, errBadPayload
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 || len(v) != len(id) {
				return "", id, errBadPayload
			}
			copy(id[:], v)
			data = data[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return "", id, errBadPayload
			}
			caller = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return "", id, errBadPayload
			}
			data = data[n:]
		}
	}
	return caller, id, nil
}

// finalize: 1=market 2=batch
func encodeFinalize(market auction.MarketID, batch auction.BatchID) []byte {
	b := make([]byte, 0, 32)
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, string(market))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(batch))
	return b
}

func decodeFinalize(data []byte) (auction.MarketID, auction.BatchID, error) {
	var market auction.MarketID
	var batch auction.BatchID
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return "", 0, errBadPayload
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(data)
			if n < 0 {
				return "", 0, errBadPayload
			}
			market = auction.MarketID(v)
			data = data[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return "", 0, errBadPayload
			}
			batch = auction.BatchID(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return "", 0, errBadPayload
			}
			data = data[n:]
		}
	}
	return market, batch, nil
}
