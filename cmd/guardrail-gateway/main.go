package main

import (
	"log"

	"github.com/rolefirst/guardrail/core/controlplane/gateway"
	"github.com/rolefirst/guardrail/core/infra/buildinfo"
	"github.com/rolefirst/guardrail/core/infra/config"
)

func main() {
	log.Println("guardrail gateway starting...")
	buildinfo.Log("guardrail-gateway")
	cfg := config.Load()
	if err := gateway.Run(cfg); err != nil {
		log.Fatalf("gateway error: %v", err)
	}
}
