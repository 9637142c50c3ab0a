// Command tgbot runs and inspects Telegram bots built on the dispatcher.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
