// Command amalgam loads a search-space document and drives generator
// composition runs from the terminal.
package main

func main() {
	Execute()
}
