// Blunderlab - guess the blunderer's rating, or find the blunder.
package main

func main() {
	Execute()
}
