package e2e

import (
	"github.com/cucumber/godog"

	"teamdns/e2e/steps/auth"
	"teamdns/e2e/steps/common"
	"teamdns/e2e/steps/dns"
	"teamdns/e2e/steps/ratelimit"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	auth.RegisterSteps(ctx, tc)
	dns.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}
