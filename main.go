package main

import "github.com/dang-doctor/doctor-fe/cmd/dangdoc"

func main() {
	dangdoc.Execute()
}
