// Command safememctl exercises the safemem allocator from the command line.
package main

func main() {
	execute()
}
