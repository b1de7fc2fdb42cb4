// Command dlobctl is a CLI client that sends NewOrder/CancelOrder wire
// messages to a running dlobd.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/fenrir-dlob/dlob/internal/common"
	"github.com/fenrir-dlob/dlob/internal/ingest"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the dlobd ingest server")
	owner := flag.String("owner", "", "base58 account public key placing the order (compulsory)")
	action := flag.String("action", "place", "action to perform: ['place', 'cancel']")

	marketIndex := flag.Uint("market-index", 0, "market index")
	marketKind := flag.String("market-kind", "perp", "market kind: 'perp' or 'spot'")
	direction := flag.String("direction", "long", "order direction: 'long' or 'short'")
	orderType := flag.String("type", "limit", "order type: 'market', 'limit', 'oracle', 'trigger-market', 'trigger-limit'")
	price := flag.String("price", "100.00", "limit price, human units (e.g. 27.50)")
	size := flag.Uint64("size", 10, "base asset amount")
	postOnly := flag.Bool("post-only", false, "mark the order post-only")

	orderID := flag.Uint("order-id", 1, "per-user order id (required for cancel)")

	flag.Parse()

	if *owner == "" {
		fmt.Println("Error: -owner is compulsory.")
		flag.Usage()
		os.Exit(1)
	}
	user, err := solana.PublicKeyFromBase58(*owner)
	if err != nil {
		log.Fatalf("invalid -owner: %v", err)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()

	kind, err := parseMarketKind(*marketKind)
	if err != nil {
		log.Fatal(err)
	}
	market := common.NewMarketId(uint16(*marketIndex), kind)

	switch strings.ToLower(*action) {
	case "place":
		o, err := buildOrder(market, *direction, *orderType, *price, *size, *postOnly)
		if err != nil {
			log.Fatal(err)
		}
		o.OrderID = uint32(*orderID)
		if err := ingest.SendNewOrder(conn, user, o); err != nil {
			log.Fatalf("send new order: %v", err)
		}
		fmt.Printf("-> placed %s %s %s size=%d market=%s\n", *direction, *orderType, *price, *size, market)
	case "cancel":
		if *orderID == 0 {
			log.Fatal("Error: -order-id is required for cancel")
		}
		dir, err := parseDirection(*direction)
		if err != nil {
			log.Fatal(err)
		}
		if err := ingest.SendCancelOrder(conn, user, uint32(*orderID), market, dir); err != nil {
			log.Fatalf("send cancel: %v", err)
		}
		fmt.Printf("-> canceled order %d on %s\n", *orderID, market)
	default:
		log.Fatalf("unknown action: %s", *action)
	}
}

func parseMarketKind(s string) (common.MarketType, error) {
	switch strings.ToLower(s) {
	case "perp":
		return common.MarketTypePerp, nil
	case "spot":
		return common.MarketTypeSpot, nil
	default:
		return 0, fmt.Errorf("unknown market kind %q", s)
	}
}

func parseDirection(s string) (common.Direction, error) {
	switch strings.ToLower(s) {
	case "long", "buy":
		return common.DirectionLong, nil
	case "short", "sell":
		return common.DirectionShort, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

func parseOrderType(s string) (common.OrderType, error) {
	switch strings.ToLower(s) {
	case "market":
		return common.OrderTypeMarket, nil
	case "limit":
		return common.OrderTypeLimit, nil
	case "oracle":
		return common.OrderTypeOracle, nil
	case "trigger-market":
		return common.OrderTypeTriggerMarket, nil
	case "trigger-limit":
		return common.OrderTypeTriggerLimit, nil
	default:
		return 0, fmt.Errorf("unknown order type %q", s)
	}
}

// priceToFixedPoint parses a human-entered decimal price string into the
// core's PricePrecision-scaled uint64, using decimal.Decimal rather than
// float64 parsing to avoid binary floating-point rounding on the
// multiply.
func priceToFixedPoint(s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", s, err)
	}
	scaled := d.Mul(decimal.NewFromInt(common.PricePrecision))
	if scaled.IsNegative() {
		return 0, fmt.Errorf("price %q must be non-negative", s)
	}
	return uint64(scaled.IntPart()), nil
}

func buildOrder(market common.MarketId, directionStr, typeStr, priceStr string, size uint64, postOnly bool) (common.Order, error) {
	dir, err := parseDirection(directionStr)
	if err != nil {
		return common.Order{}, err
	}
	ot, err := parseOrderType(typeStr)
	if err != nil {
		return common.Order{}, err
	}
	fixedPrice, err := priceToFixedPoint(priceStr)
	if err != nil {
		return common.Order{}, err
	}
	return common.Order{
		Status:          common.OrderStatusOpen,
		OrderType:       ot,
		Direction:       dir,
		MarketIndex:     market.Index,
		MarketType:      market.Kind,
		Price:           fixedPrice,
		BaseAssetAmount: size,
		PostOnly:        postOnly,
	}, nil
}
