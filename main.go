package main

import "github.com/rizalta/toysql/cli"

func main() {
	cli.Execute()
}
