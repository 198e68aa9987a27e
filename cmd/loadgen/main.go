// Contention check against a running server: fires concurrent order
// requests for one product and verifies exactly the available stock is sold.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	productID := flag.String("product", "", "product ID to order")
	stock := flag.Int("stock", 20, "stock the product starts with")
	requests := flag.Int("requests", 50, "concurrent order requests to fire")
	flag.Parse()

	if *productID == "" {
		log.Fatal("-product is required")
	}

	client := &http.Client{Timeout: 10 * time.Second}

	var created, conflicts, failures atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *requests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			body, _ := json.Marshal(map[string]any{
				"request_id":  uuid.NewString(),
				"customer_id": fmt.Sprintf("loadgen-%d", n),
				"items": []map[string]any{
					{"product_id": *productID, "quantity": 1},
				},
			})

			resp, err := client.Post(*baseURL+"/api/orders", "application/json", bytes.NewReader(body))
			if err != nil {
				failures.Add(1)
				return
			}
			defer resp.Body.Close()

			switch resp.StatusCode {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusConflict:
				conflicts.Add(1)
			default:
				failures.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("========== LOAD TEST RESULTS ==========")
	fmt.Printf("Total Requests:   %d\n", *requests)
	fmt.Printf("Orders Created:   %d\n", created.Load())
	fmt.Printf("Out of Stock:     %d\n", conflicts.Load())
	fmt.Printf("Other Failures:   %d\n", failures.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("=======================================")

	wantCreated := int32(*stock)
	if *requests < *stock {
		wantCreated = int32(*requests)
	}
	if created.Load() == wantCreated && failures.Load() == 0 {
		fmt.Printf("PASS: exactly %d orders created\n", wantCreated)
	} else {
		fmt.Printf("FAIL: expected %d created, got %d (failures: %d)\n",
			wantCreated, created.Load(), failures.Load())
	}
}
