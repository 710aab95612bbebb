// Package memphis is a client SDK for a Memphis-style message broker built
// on top of NATS and JetStream.
//
// It layers station/producer/consumer lifecycle management, partitioned
// produce/consume, schema validation, and dead-letter routing over a plain
// JetStream stream. The broker itself, the wire transport (nats.go), and
// JSON encoding are external collaborators; this package owns only the
// client-side coordination.
//
// # Usage
//
//	conn, err := memphis.Connect("localhost", "app", "pass")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	station, err := conn.CreateStation("orders")
//	producer, err := station.CreateProducer("order-writer")
//	_, err = producer.Produce(memphis.NewEnvelope([]byte(`{"order_id":"1"}`)))
//
//	consumer, err := station.CreateConsumer("order-reader")
//	msgs := consumer.Consume()
//	for msg := range msgs {
//	    fmt.Println(string(msg.Data()))
//	    msg.Ack()
//	}
package memphis
