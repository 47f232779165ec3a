package main

import (
	"github.com/chrisw65/market-profile/cmd/market-profile/commands"
	"github.com/chrisw65/market-profile/lib/util/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
