// Package main provides the wichtel binary: an interactive dice helper for
// gift-exchange games.
package main

func main() {
	Execute()
}
