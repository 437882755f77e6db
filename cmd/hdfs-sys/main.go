package main

import "github.com/goplus/hdfs-sys/cmd/hdfs-sys/internal"

func main() {
	internal.Execute()
}
