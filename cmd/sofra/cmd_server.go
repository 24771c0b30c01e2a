package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sofrapos/sofra/app/controllers"
	"github.com/sofrapos/sofra/app/repositories"
	"github.com/sofrapos/sofra/app/routes"
	"github.com/sofrapos/sofra/app/services"
	"github.com/sofrapos/sofra/internal/hub"
	"github.com/sofrapos/sofra/internal/server"
	"github.com/sofrapos/sofra/pkg/router"
)

// sofra serve — start the gateway.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway (REST API + websocket order push)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start()
	},
}

// sofra route:list — print all registered routes.
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered named routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Register against a throwaway router; no DB or hub goroutine needed
		// just to enumerate paths.
		h := hub.New("")
		authCtl := controllers.NewAuthController(services.NewAuthService(repositories.NewUserRepository(nil)))
		orderCtl := controllers.NewOrderController(services.NewOrderService(repositories.NewOrderRepository(nil), h), h)

		r := router.New()
		routes.Register(r, authCtl, orderCtl, h)

		infos := r.Routes()
		if len(infos) == 0 {
			fmt.Println("No named routes registered.")
			return nil
		}

		sort.Slice(infos, func(i, j int) bool {
			if infos[i].Path != infos[j].Path {
				return infos[i].Path < infos[j].Path
			}
			return infos[i].Method < infos[j].Method
		})

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}
