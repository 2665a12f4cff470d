package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gemalto/flume"
	"github.com/gemalto/ldap-go"
)

func main() {
	var addr string
	var bindDN string
	var password string
	var baseDN string
	var scopeName string
	var attrList string
	var attribute string
	var value string
	var present string
	var useTLS bool
	var insecure bool
	var sizeLimit int
	var timeout time.Duration
	var verbose bool

	flag.StringVar(&addr, "addr", "localhost:389", "server address")
	flag.StringVar(&bindDN, "D", "", "bind DN, empty for anonymous")
	flag.StringVar(&password, "w", "", "bind password")
	flag.StringVar(&baseDN, "b", "", "search base DN")
	flag.StringVar(&scopeName, "s", "sub", "scope: base|one|sub")
	flag.StringVar(&attrList, "attrs", "", "comma-separated attributes to return, empty for all")
	flag.StringVar(&attribute, "a", "", "attribute for an equality filter")
	flag.StringVar(&value, "v", "", "value for an equality filter")
	flag.StringVar(&present, "present", "objectClass", "attribute for a presence filter, used when -a is not set")
	flag.BoolVar(&useTLS, "tls", false, "connect over TLS")
	flag.BoolVar(&insecure, "insecure", false, "skip TLS certificate verification")
	flag.IntVar(&sizeLimit, "z", 0, "size limit, 0 for no client-requested limit")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout")
	flag.BoolVar(&verbose, "verbose", false, "log protocol traffic")

	flag.Parse()

	level := flume.InfoLevel
	if verbose {
		level = flume.DebugLevel
	}
	err := flume.Configure(flume.Config{
		Development:  true,
		DefaultLevel: level,
	})
	if err != nil {
		fail("error configuring logging", err)
	}

	var scope ldap.Scope
	switch scopeName {
	case "base":
		scope = ldap.ScopeBaseObject
	case "one":
		scope = ldap.ScopeSingleLevel
	case "sub":
		scope = ldap.ScopeWholeSubtree
	default:
		fail("invalid scope: "+scopeName, nil)
	}

	var filter ldap.Filter
	if attribute != "" {
		filter = ldap.FilterEqual{Attribute: attribute, Value: value}
	} else {
		filter = ldap.FilterPresent{Attribute: present}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var conn *ldap.Conn
	if useTLS {
		conn, err = ldap.DialTLS(ctx, "tcp", addr, &tls.Config{InsecureSkipVerify: insecure})
	} else {
		conn, err = ldap.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		fail("error connecting", err)
	}
	defer conn.Close()

	if err := conn.Bind(ctx, bindDN, password); err != nil {
		fail("bind failed", err)
	}

	req := &ldap.SearchRequest{
		BaseDN:    baseDN,
		Scope:     scope,
		SizeLimit: sizeLimit,
		Filter:    filter,
	}
	if attrList != "" {
		req.Attributes = strings.Split(attrList, ",")
	}

	stream, err := conn.Search(ctx, req)
	if err != nil {
		fail("search failed", err)
	}

	count := 0
	for {
		entry, err := stream.Next(ctx)
		if err != nil {
			fail("search failed", err)
		}
		if entry == nil {
			break
		}
		if count > 0 {
			fmt.Println("")
		}
		fmt.Printf("dn: %s\n", entry.ObjectName)
		for _, a := range entry.Attributes {
			for _, v := range a.Values {
				fmt.Printf("%s: %s\n", a.Type, v)
			}
		}
		count++
	}

	for _, ref := range stream.References() {
		fmt.Printf("\n# reference: %s\n", ref)
	}
	fmt.Printf("\n# %d entries\n", count)

	_ = conn.Unbind(ctx)
}

func fail(msg string, err error) {
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, msg+":", err)
	} else {
		_, _ = fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(1)
}
