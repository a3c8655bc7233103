// Command mgit runs commands across the git repositories listed in a
// project's mgit.json.
package main

func main() {
	Execute()
}
