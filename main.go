package main

import "github.com/momimo-cort/dubula-chatbot-dp6-rag-chatbot/cmd"

func main() {
	cmd.Execute()
}
