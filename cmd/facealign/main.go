// Command facealign detects faces with an SCRFD model and produces aligned
// face crops, blurred images and profile pictures.
package main

func main() {
	Execute()
}
