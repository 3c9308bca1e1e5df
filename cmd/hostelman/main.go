// Package main は寮管理ポータルhostelmanのエントリーポイント。
// サブコマンド（serve / worker / migrate / healthcheck）はinternal/appが解釈する。
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/hostelman/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "hostelman: %v\n", err)
		os.Exit(1)
	}
}
