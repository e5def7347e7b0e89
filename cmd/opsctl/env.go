package main

import "os"

var lookupEnv = os.LookupEnv
