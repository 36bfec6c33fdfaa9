package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dexgate/dexgate/internal/chain"
	"github.com/dexgate/dexgate/internal/config"
	"github.com/dexgate/dexgate/internal/service"
	"github.com/dexgate/dexgate/internal/signer"
	"github.com/dexgate/dexgate/internal/zrx"
)

// Dev tool: fetches a live price for a pair and prints liquidity,
// allowance and gasless eligibility details.
func main() {
	var (
		chainID    = flag.Int64("chain", 137, "chain id")
		sellToken  = flag.String("sell", "", "sell token address")
		buyToken   = flag.String("buy", "", "buy token address")
		sellAmount = flag.String("amount", "", "sell amount in base units")
		taker      = flag.String("taker", "", "taker address")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	client := zrx.NewClient(cfg.ZeroX)
	tokens := service.NewTokenRegistry(cfg.Tokens)
	eligibility := service.NewEligibilityResolver(client)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	req := &zrx.QuoteRequest{
		ChainID:    *chainID,
		SellToken:  *sellToken,
		BuyToken:   *buyToken,
		SellAmount: *sellAmount,
		Taker:      *taker,
	}

	gasless, err := eligibility.IsGaslessSupported(ctx, *chainID, *sellToken)
	if err != nil {
		log.Fatalf("gasless lookup: %v", err)
	}

	price, err := client.Price(ctx, req, gasless)
	if err != nil {
		log.Fatalf("price: %v", err)
	}

	fmt.Println("--- Price ---")
	fmt.Printf("Kind:       %s\n", price.Kind)
	fmt.Printf("Price:      %s\n", price.Price)
	fmt.Printf("SellAmount: %s %s\n", price.SellAmount, tokens.Symbol(*chainID, *sellToken))
	fmt.Printf("BuyAmount:  %s %s\n", price.BuyAmount, tokens.Symbol(*chainID, *buyToken))
	fmt.Printf("Liquidity:  %v\n", price.LiquidityAvailable)
	fmt.Printf("Gasless:    %v\n", gasless)

	if price.Issues != nil && price.Issues.Allowance != nil {
		fmt.Println("\n--- Allowance Issue ---")
		fmt.Printf("Spender: %s\n", price.Issues.Allowance.Spender)
		fmt.Printf("Actual:  %s\n", price.Issues.Allowance.Actual)
		actual, ok := new(big.Int).SetString(price.Issues.Allowance.Actual, 10)
		if ok {
			fmt.Printf("Legacy spendable: %v\n",
				tokens.HasLegacySpendableAllowance(*chainID, *sellToken, actual))
		}
	} else {
		fmt.Println("\nNo allowance issue reported")
	}

	if cfg.Chain.RPCURL != "" && cfg.Chain.PrivateKey != "" {
		printChainState(ctx, cfg, price, *sellToken)
	}
}

// printChainState cross-checks the quote's allowance issue against live
// on-chain state for the gateway wallet.
func printChainState(ctx context.Context, cfg *config.Config, price *zrx.Quote, sellToken string) {
	wallet, err := signer.NewWallet(cfg.Chain.PrivateKey)
	if err != nil {
		log.Fatalf("wallet: %v", err)
	}
	client, err := chain.Dial(ctx, cfg.Chain.RPCURL, wallet)
	if err != nil {
		log.Fatalf("rpc: %v", err)
	}

	token := common.HexToAddress(sellToken)
	fmt.Println("\n--- On-chain (gateway wallet) ---")
	fmt.Printf("Wallet: %s\n", wallet.Address().Hex())

	if balance, err := client.BalanceOf(ctx, token, wallet.Address()); err == nil {
		fmt.Printf("Sell token balance: %s\n", balance)
	} else {
		fmt.Printf("Sell token balance: lookup failed (%v)\n", err)
	}

	if price.Issues != nil && price.Issues.Allowance != nil {
		spender := common.HexToAddress(price.Issues.Allowance.Spender)
		if allowance, err := client.Allowance(ctx, token, wallet.Address(), spender); err == nil {
			fmt.Printf("Live allowance to %s: %s\n", spender.Hex(), allowance)
		} else {
			fmt.Printf("Live allowance: lookup failed (%v)\n", err)
		}
	}
}
