package main

import "github.com/dilanka-heshan/Explore-Sri-Lanka/cmd/handlers"

func main() {
	handlers.Execute()
}
