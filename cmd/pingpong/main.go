// Command pingpong runs the GPU ping-pong counter.
//
//	pingpong run --length 8 --period 1s
//	pingpong run --backend software --ticks 10 --png out/
//	pingpong shaders
package main

func main() {
	Execute()
}
